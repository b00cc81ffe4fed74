package sentiment

import (
	"context"
	"strings"

	"github.com/selivandex/market-pulse/pkg/models"
)

// LexiconClassifier is the built-in keyword-based classifier. It is
// fully deterministic and needs no network, which makes it the default
// when no model-backed classifier is configured.
type LexiconClassifier struct {
	positiveWords map[string]float64
	negativeWords map[string]float64
}

// NewLexiconClassifier creates new lexicon classifier
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positiveWords: buildPositiveWords(),
		negativeWords: buildNegativeWords(),
	}
}

// neutralDamping tempers how fast matched keywords drain the neutral
// mass: one strong keyword is already enough to tip the label.
const neutralDamping = 0.5

// Classify derives a label distribution from matched keyword intensity.
// Text without any sentiment keywords stays fully neutral; otherwise
// the neutral mass shrinks as the summed keyword weight grows.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	words := strings.Fields(strings.ToLower(text))

	var positive, negative float64
	for _, word := range words {
		// Clean punctuation
		word = strings.Trim(word, ".,!?;:\"'()")

		if weight, ok := c.positiveWords[word]; ok {
			positive += weight
		}
		if weight, ok := c.negativeWords[word]; ok {
			negative += weight
		}
	}

	matched := positive + negative
	if matched == 0 {
		return map[models.Label]float64{
			models.LabelPositive: 0,
			models.LabelNeutral:  1,
			models.LabelNegative: 0,
		}, nil
	}

	// The engine normalizes, so raw masses are enough here
	signal := matched / (matched + neutralDamping)
	return map[models.Label]float64{
		models.LabelPositive: signal * positive / matched,
		models.LabelNeutral:  1 - signal,
		models.LabelNegative: signal * negative / matched,
	}, nil
}

// buildPositiveWords returns positive keywords for financial news
func buildPositiveWords() map[string]float64 {
	return map[string]float64{
		// General positive
		"rally":        0.9,
		"surge":        0.8,
		"soar":         0.8,
		"soars":        0.8,
		"jump":         0.7,
		"jumps":        0.7,
		"gain":         0.6,
		"gains":        0.6,
		"profit":       0.6,
		"profits":      0.6,
		"record":       0.6,
		"up":           0.5,
		"rise":         0.5,
		"rises":        0.5,
		"grow":         0.5,
		"growth":       0.5,
		"increase":     0.5,
		"positive":     0.5,
		"optimistic":   0.5,
		"breakthrough": 0.6,
		"strong":       0.5,
		"outperform":   0.6,
		"rebound":      0.6,

		// Earnings specific
		"beat":     0.8,
		"beats":    0.8,
		"exceeded": 0.7,
		"upgrade":  0.7,
		"upgraded": 0.7,
		"raised":   0.6,
		"dividend": 0.5,
		"buyback":  0.6,
		"expansion": 0.5,
		"approval":  0.6,
	}
}

// buildNegativeWords returns negative keywords for financial news
func buildNegativeWords() map[string]float64 {
	return map[string]float64{
		// General negative
		"crash":       1.0,
		"plunge":      0.8,
		"plunges":     0.8,
		"tumble":      0.7,
		"tumbles":     0.7,
		"fall":        0.6,
		"falls":       0.6,
		"drop":        0.6,
		"drops":       0.6,
		"decline":     0.6,
		"loss":        0.7,
		"losses":      0.7,
		"down":        0.5,
		"negative":    0.5,
		"pessimistic": 0.5,
		"fear":        0.6,
		"panic":       0.8,
		"selloff":     0.7,
		"correction":  0.6,
		"weak":        0.5,
		"slump":       0.7,

		// Company specific
		"miss":       0.8,
		"missed":     0.8,
		"downgrade":  0.7,
		"downgraded": 0.7,
		"lawsuit":    0.7,
		"fraud":      1.0,
		"bankruptcy": 1.0,
		"default":    0.8,
		"recall":     0.7,
		"layoffs":    0.7,
		"probe":      0.6,
		"fine":       0.5,
		"warning":    0.6,
	}
}
