package sentiment

import (
	"regexp"
	"sort"
	"strings"
)

// SymbolExtractor finds watchlist tickers mentioned in article text.
// Matching is word-bounded so "AAPL" does not match inside "SNAAPLE".
type SymbolExtractor struct {
	patterns map[string]*regexp.Regexp
	symbols  []string
}

// NewSymbolExtractor creates an extractor for the given watchlist.
// Aliases map extra names (company names) onto a ticker.
func NewSymbolExtractor(watchlist []string, aliases map[string][]string) *SymbolExtractor {
	patterns := make(map[string]*regexp.Regexp, len(watchlist))
	symbols := make([]string, 0, len(watchlist))

	for _, symbol := range watchlist {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}

		terms := []string{regexp.QuoteMeta(symbol)}
		for _, alias := range aliases[symbol] {
			if alias = strings.TrimSpace(alias); alias != "" {
				terms = append(terms, regexp.QuoteMeta(alias))
			}
		}

		patterns[symbol] = regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return &SymbolExtractor{patterns: patterns, symbols: symbols}
}

// Extract returns the watchlist symbols mentioned in text, sorted for
// deterministic output. Empty result means no ticker matched.
func (e *SymbolExtractor) Extract(text string) []string {
	if text == "" {
		return nil
	}

	var matched []string
	for _, symbol := range e.symbols {
		if e.patterns[symbol].MatchString(text) {
			matched = append(matched, symbol)
		}
	}
	return matched
}
