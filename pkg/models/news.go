package models

import "time"

// RawArticle is a single article as fetched from a provider, normalized
// to one shape regardless of the provider's own field names. Immutable
// once created.
type RawArticle struct {
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	FetchedAt   time.Time `json:"fetched_at" db:"fetched_at"`
	SourceID    string    `json:"source_id" db:"source_id"`
	URL         string    `json:"url" db:"url"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
}

// Label is a sentiment class
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Labels lists all sentiment classes in a fixed order. The order also
// breaks arg-max ties deterministically.
var Labels = []Label{LabelPositive, LabelNeutral, LabelNegative}

// ScoreResult is the output of one sentiment analysis
type ScoreResult struct {
	Label      Label             `json:"label"`
	Scores     map[Label]float64 `json:"scores"` // per-label, sums to 1
	Confidence float64           `json:"confidence"`
	Reliable   bool              `json:"reliable"`
}

// ScoredArticle is a RawArticle plus its sentiment. Created once per
// unique article and never mutated; re-scoring produces a new value.
type ScoredArticle struct {
	RawArticle
	Sentiment      *ScoreResult `json:"sentiment"`
	RelatedSymbols []string     `json:"related_symbols"`
	ScoredAt       time.Time    `json:"scored_at" db:"scored_at"`
}

// SymbolGeneral is the synthetic symbol for articles with no ticker match
const SymbolGeneral = "GENERAL"

// Symbols returns the article's related symbols, falling back to GENERAL
func (a *ScoredArticle) Symbols() []string {
	if len(a.RelatedSymbols) == 0 {
		return []string{SymbolGeneral}
	}
	return a.RelatedSymbols
}
