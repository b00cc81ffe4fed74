package sentiment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Classifier is the external capability the engine calls for raw
// per-label scores. Implementations: keyword lexicon, OpenAI.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[models.Label]float64, error)
}

// AnalysisError marks one failed analysis: invalid input or an
// unavailable classifier. Fatal to one article or batch slot only.
type AnalysisError struct {
	Reason string
	Cause  error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Config holds the engine's tunables. Zero values fall back to the
// defaults below.
type Config struct {
	ReliabilityThreshold float64
	HeadlineWeight       float64
	BodyWeight           float64
	MaxTextLength        int
	BatchSize            int
}

const (
	defaultReliabilityThreshold = 0.7
	defaultHeadlineWeight       = 0.6
	defaultBodyWeight           = 0.4
	defaultMaxTextLength        = 1024
	defaultBatchSize            = 16
)

// Engine scores text sentiment through a Classifier, adding
// truncation, batching, headline/body fusion and reliability
// thresholding on top of the raw label scores.
type Engine struct {
	classifier Classifier
	cfg        Config
}

// NewEngine creates new scoring engine
func NewEngine(classifier Classifier, cfg Config) *Engine {
	if cfg.ReliabilityThreshold <= 0 {
		cfg.ReliabilityThreshold = defaultReliabilityThreshold
	}
	// The fusion weights only make sense as a pair summing to one, so
	// they default and normalize together rather than per field
	if cfg.HeadlineWeight <= 0 || cfg.BodyWeight <= 0 {
		cfg.HeadlineWeight = defaultHeadlineWeight
		cfg.BodyWeight = defaultBodyWeight
	} else if sum := cfg.HeadlineWeight + cfg.BodyWeight; sum != 1 {
		cfg.HeadlineWeight /= sum
		cfg.BodyWeight /= sum
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaultMaxTextLength
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	return &Engine{classifier: classifier, cfg: cfg}
}

// Analyze scores one text. Empty or whitespace-only input fails with
// AnalysisError; text over the character ceiling is truncated to a
// prefix so results stay reproducible.
func (e *Engine) Analyze(ctx context.Context, text string) (*models.ScoreResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &AnalysisError{Reason: "empty input"}
	}

	scores, err := e.classifier.Classify(ctx, truncate(text, e.cfg.MaxTextLength))
	if err != nil {
		return nil, &AnalysisError{Reason: "classifier unavailable", Cause: err}
	}

	normalized, err := normalize(scores)
	if err != nil {
		return nil, &AnalysisError{Reason: "degenerate classifier output", Cause: err}
	}

	return e.buildResult(normalized), nil
}

// AnalyzeBatch scores texts in batches. The output always has one slot
// per input; invalid inputs yield nil in place, never shifting the
// alignment of the rest. A classifier failure voids only the current
// batch: its slots become nil and processing continues with the next
// batch.
func (e *Engine) AnalyzeBatch(ctx context.Context, texts []string, batchSize int) []*models.ScoreResult {
	if batchSize <= 0 {
		batchSize = e.cfg.BatchSize
	}

	results := make([]*models.ScoreResult, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if ctx.Err() != nil {
			// Cancelled between batches: remaining slots stay nil
			logger.Warn("batch analysis cancelled",
				zap.Int("scored", start),
				zap.Int("total", len(texts)),
			)
			return results
		}

		e.analyzeOneBatch(ctx, texts, results, start, end)
	}

	return results
}

// analyzeOneBatch fills results[start:end]. On a classifier failure
// every slot of this batch is nil, including ones already scored.
func (e *Engine) analyzeOneBatch(ctx context.Context, texts []string, results []*models.ScoreResult, start, end int) {
	for i := start; i < end; i++ {
		if strings.TrimSpace(texts[i]) == "" {
			results[i] = nil
			continue
		}

		result, err := e.Analyze(ctx, texts[i])
		if err != nil {
			logger.Warn("batch failed, voiding its slots",
				zap.Int("batch_start", start),
				zap.Int("batch_end", end),
				zap.Error(err),
			)
			for j := start; j < end; j++ {
				results[j] = nil
			}
			return
		}
		results[i] = result
	}
}

// AnalyzeWithContext scores body and headline independently and fuses
// the per-label scores with the configured weights. If only one of the
// two analyses succeeds its result is returned unmodified; if both
// fail, the analysis fails.
func (e *Engine) AnalyzeWithContext(ctx context.Context, body, headline string) (*models.ScoreResult, error) {
	if strings.TrimSpace(headline) == "" {
		return e.Analyze(ctx, body)
	}

	headlineResult, headlineErr := e.Analyze(ctx, headline)
	bodyResult, bodyErr := e.Analyze(ctx, body)

	switch {
	case headlineErr == nil && bodyErr == nil:
		fused := make(map[models.Label]float64, len(models.Labels))
		for _, label := range models.Labels {
			fused[label] = e.cfg.HeadlineWeight*headlineResult.Scores[label] + e.cfg.BodyWeight*bodyResult.Scores[label]
		}
		return e.buildResult(fused), nil

	case headlineErr == nil:
		return headlineResult, nil

	case bodyErr == nil:
		return bodyResult, nil

	default:
		return nil, &AnalysisError{
			Reason: "headline and body analysis both failed",
			Cause:  fmt.Errorf("headline: %v; body: %w", headlineErr, bodyErr),
		}
	}
}

// buildResult derives label, confidence and reliability from a
// normalized score map
func (e *Engine) buildResult(scores map[models.Label]float64) *models.ScoreResult {
	best := models.LabelNeutral
	bestScore := -1.0
	for _, label := range models.Labels {
		if scores[label] > bestScore {
			best = label
			bestScore = scores[label]
		}
	}

	return &models.ScoreResult{
		Label:      best,
		Scores:     scores,
		Confidence: bestScore,
		Reliable:   bestScore >= e.cfg.ReliabilityThreshold,
	}
}

// normalize scales scores so they sum to 1
func normalize(scores map[models.Label]float64) (map[models.Label]float64, error) {
	sum := 0.0
	for _, label := range models.Labels {
		if scores[label] < 0 {
			return nil, fmt.Errorf("negative score for %s", label)
		}
		sum += scores[label]
	}
	if sum <= 0 {
		return nil, fmt.Errorf("scores sum to zero")
	}

	normalized := make(map[models.Label]float64, len(models.Labels))
	for _, label := range models.Labels {
		normalized[label] = scores[label] / sum
	}
	return normalized, nil
}

// truncate keeps a deterministic prefix of at most limit characters
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
