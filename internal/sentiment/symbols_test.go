package sentiment

import (
	"reflect"
	"testing"
)

func TestSymbolExtractor_Extract(t *testing.T) {
	extractor := NewSymbolExtractor(
		[]string{"AAPL", "MSFT", "TSLA"},
		map[string][]string{
			"AAPL": {"Apple"},
			"TSLA": {"Tesla"},
		},
	)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"ticker", "AAPL closed higher today", []string{"AAPL"}},
		{"alias", "Apple unveiled a new product line", []string{"AAPL"}},
		{"case insensitive", "tesla deliveries beat estimates", []string{"TSLA"}},
		{"multiple sorted", "TSLA and MSFT both moved while Apple was flat", []string{"AAPL", "MSFT", "TSLA"}},
		{"word bounded", "The SNAAPLE factor is irrelevant", nil},
		{"no match", "Oil prices rose on supply concerns", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSymbolExtractor_EmptyWatchlist(t *testing.T) {
	extractor := NewSymbolExtractor(nil, nil)

	if got := extractor.Extract("AAPL up 3%"); got != nil {
		t.Errorf("Empty watchlist should match nothing, got %v", got)
	}
}
