package sentiment

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/selivandex/market-pulse/pkg/models"
)

type stubClassifier struct {
	scores   map[models.Label]float64
	err      error
	calls    int
	lastText string
}

func (c *stubClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	c.calls++
	c.lastText = text
	if c.err != nil {
		return nil, c.err
	}
	return c.scores, nil
}

func positiveStub() *stubClassifier {
	return &stubClassifier{scores: map[models.Label]float64{
		models.LabelPositive: 0.85,
		models.LabelNeutral:  0.10,
		models.LabelNegative: 0.05,
	}}
}

func TestEngine_Analyze(t *testing.T) {
	engine := NewEngine(positiveStub(), Config{})

	result, err := engine.Analyze(context.Background(), "Shares surged after a record quarter")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Label != models.LabelPositive {
		t.Errorf("Expected positive label, got %s", result.Label)
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence should equal the winning score, got %f", result.Confidence)
	}
	if !result.Reliable {
		t.Error("Score above the 0.7 threshold should be reliable")
	}

	sum := 0.0
	for _, label := range models.Labels {
		sum += result.Scores[label]
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("Scores should sum to 1, got %f", sum)
	}
}

func TestEngine_Analyze_EmptyInput(t *testing.T) {
	engine := NewEngine(positiveStub(), Config{})

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := engine.Analyze(context.Background(), text); err == nil {
			t.Errorf("Analyze(%q) should fail", text)
		}
	}
}

func TestEngine_Analyze_NormalizesScores(t *testing.T) {
	// Raw masses that do not sum to 1
	engine := NewEngine(&stubClassifier{scores: map[models.Label]float64{
		models.LabelPositive: 3,
		models.LabelNeutral:  1,
		models.LabelNegative: 1,
	}}, Config{})

	result, err := engine.Analyze(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if math.Abs(result.Scores[models.LabelPositive]-0.6) > 1e-9 {
		t.Errorf("Expected normalized positive 0.6, got %f", result.Scores[models.LabelPositive])
	}
	if result.Reliable {
		t.Error("0.6 confidence should be below the default 0.7 threshold")
	}
}

func TestEngine_Analyze_DegenerateScores(t *testing.T) {
	engine := NewEngine(&stubClassifier{scores: map[models.Label]float64{}}, Config{})

	if _, err := engine.Analyze(context.Background(), "text"); err == nil {
		t.Error("All-zero classifier output should fail")
	}
}

func TestEngine_Analyze_Truncation(t *testing.T) {
	classifier := positiveStub()
	engine := NewEngine(classifier, Config{MaxTextLength: 10})

	long := strings.Repeat("é", 25)
	if _, err := engine.Analyze(context.Background(), long); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if got := len([]rune(classifier.lastText)); got != 10 {
		t.Errorf("Expected classifier to see 10 characters, got %d", got)
	}
	if !strings.HasPrefix(long, classifier.lastText) {
		t.Error("Truncation must keep a prefix of the input")
	}
}

func TestEngine_AnalyzeBatch_Alignment(t *testing.T) {
	engine := NewEngine(positiveStub(), Config{})

	texts := []string{"first article", "", "third article", "   "}
	results := engine.AnalyzeBatch(context.Background(), texts, 2)

	if len(results) != len(texts) {
		t.Fatalf("Expected %d slots, got %d", len(texts), len(results))
	}
	if results[0] == nil || results[2] == nil {
		t.Error("Valid inputs should be scored")
	}
	if results[1] != nil || results[3] != nil {
		t.Error("Empty inputs should yield nil without shifting alignment")
	}
}

func TestEngine_AnalyzeBatch_FailureVoidsBatchOnly(t *testing.T) {
	// Fail exactly on the third call (second batch, first item)
	failing := &failAfterClassifier{inner: positiveStub(), failOn: 3, err: errors.New("model overloaded")}
	engine := NewEngine(failing, Config{})

	texts := []string{"a", "b", "c", "d", "e", "f"}
	results := engine.AnalyzeBatch(context.Background(), texts, 2)

	if results[0] == nil || results[1] == nil {
		t.Error("First batch should be scored")
	}
	if results[2] != nil || results[3] != nil {
		t.Error("Failing batch should have all its slots voided")
	}
	if results[4] == nil || results[5] == nil {
		t.Error("Batches after the failing one should still be scored")
	}
}

type failAfterClassifier struct {
	inner  Classifier
	failOn int
	calls  int
	err    error
}

func (c *failAfterClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	c.calls++
	if c.calls == c.failOn {
		return nil, c.err
	}
	return c.inner.Classify(ctx, text)
}

func TestEngine_AnalyzeBatch_Cancellation(t *testing.T) {
	engine := NewEngine(positiveStub(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := engine.AnalyzeBatch(ctx, []string{"a", "b"}, 2)
	if len(results) != 2 {
		t.Fatalf("Expected 2 slots, got %d", len(results))
	}
	for i, r := range results {
		if r != nil {
			t.Errorf("Slot %d should be nil after cancellation", i)
		}
	}
}

func TestEngine_AnalyzeWithContext_Fusion(t *testing.T) {
	// Headline strongly positive, body strongly negative
	classifier := &perTextClassifier{scores: map[string]map[models.Label]float64{
		"good headline": {models.LabelPositive: 0.9, models.LabelNeutral: 0.05, models.LabelNegative: 0.05},
		"bad body":      {models.LabelPositive: 0.1, models.LabelNeutral: 0.1, models.LabelNegative: 0.8},
	}}
	engine := NewEngine(classifier, Config{HeadlineWeight: 0.6, BodyWeight: 0.4})

	result, err := engine.AnalyzeWithContext(context.Background(), "bad body", "good headline")
	if err != nil {
		t.Fatalf("AnalyzeWithContext failed: %v", err)
	}

	// 0.6*0.9 + 0.4*0.1 = 0.58 positive, 0.6*0.05 + 0.4*0.8 = 0.35 negative
	if math.Abs(result.Scores[models.LabelPositive]-0.58) > 1e-9 {
		t.Errorf("Expected fused positive 0.58, got %f", result.Scores[models.LabelPositive])
	}
	if result.Label != models.LabelPositive {
		t.Errorf("Headline-weighted fusion should keep positive dominant, got %s", result.Label)
	}

	sum := 0.0
	for _, label := range models.Labels {
		sum += result.Scores[label]
	}
	if sum > 1.0+1e-9 {
		t.Errorf("Fused scores should not exceed 1, got %f", sum)
	}
}

func TestEngine_FusionWeights_DefaultAndNormalizeAsPair(t *testing.T) {
	classifier := &perTextClassifier{scores: map[string]map[models.Label]float64{
		"good headline": {models.LabelPositive: 0.9, models.LabelNeutral: 0.05, models.LabelNegative: 0.05},
		"bad body":      {models.LabelPositive: 0.1, models.LabelNeutral: 0.1, models.LabelNegative: 0.8},
	}}

	// A half-configured pair falls back to 0.6/0.4 instead of silently
	// fusing with weights summing below one
	engine := NewEngine(classifier, Config{HeadlineWeight: 0.5})

	result, err := engine.AnalyzeWithContext(context.Background(), "bad body", "good headline")
	if err != nil {
		t.Fatalf("AnalyzeWithContext failed: %v", err)
	}
	if math.Abs(result.Scores[models.LabelPositive]-0.58) > 1e-9 {
		t.Errorf("Expected default-weight fusion 0.58, got %f", result.Scores[models.LabelPositive])
	}

	// An explicit pair with a sum off one is rescaled: 3/1 acts as 0.75/0.25
	engine = NewEngine(classifier, Config{HeadlineWeight: 3, BodyWeight: 1})

	result, err = engine.AnalyzeWithContext(context.Background(), "bad body", "good headline")
	if err != nil {
		t.Fatalf("AnalyzeWithContext failed: %v", err)
	}
	if math.Abs(result.Scores[models.LabelPositive]-0.7) > 1e-9 {
		t.Errorf("Expected normalized-weight fusion 0.7, got %f", result.Scores[models.LabelPositive])
	}
}

type perTextClassifier struct {
	scores map[string]map[models.Label]float64
}

func (c *perTextClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	if s, ok := c.scores[text]; ok {
		return s, nil
	}
	return nil, errors.New("unknown text")
}

func TestEngine_AnalyzeWithContext_EmptyHeadline(t *testing.T) {
	classifier := positiveStub()
	engine := NewEngine(classifier, Config{})

	result, err := engine.AnalyzeWithContext(context.Background(), "body only", "")
	if err != nil {
		t.Fatalf("AnalyzeWithContext failed: %v", err)
	}
	if result.Label != models.LabelPositive {
		t.Errorf("Expected positive, got %s", result.Label)
	}
	if classifier.calls != 1 {
		t.Errorf("Empty headline should cost a single classification, got %d", classifier.calls)
	}
}

func TestEngine_AnalyzeWithContext_OneSideFails(t *testing.T) {
	classifier := &perTextClassifier{scores: map[string]map[models.Label]float64{
		"good headline": {models.LabelPositive: 0.9, models.LabelNeutral: 0.05, models.LabelNegative: 0.05},
	}}
	engine := NewEngine(classifier, Config{})

	result, err := engine.AnalyzeWithContext(context.Background(), "unscorable body", "good headline")
	if err != nil {
		t.Fatalf("AnalyzeWithContext failed: %v", err)
	}
	if math.Abs(result.Scores[models.LabelPositive]-0.9) > 1e-9 {
		t.Errorf("Surviving side should be returned unmodified, got %f", result.Scores[models.LabelPositive])
	}
}

func TestEngine_AnalyzeWithContext_BothFail(t *testing.T) {
	engine := NewEngine(&stubClassifier{err: errors.New("down")}, Config{})

	_, err := engine.AnalyzeWithContext(context.Background(), "body", "headline")
	if err == nil {
		t.Fatal("Expected error when both analyses fail")
	}

	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Errorf("Expected AnalysisError, got %T", err)
	}
}
