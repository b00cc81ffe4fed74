package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/selivandex/market-pulse/internal/adapters/news"
	"github.com/selivandex/market-pulse/internal/sentiment"
	"github.com/selivandex/market-pulse/internal/trends"
	"github.com/selivandex/market-pulse/pkg/models"
)

type staticProvider struct {
	name     string
	articles []models.RawArticle
	err      error
}

func (p *staticProvider) Name() string    { return p.name }
func (p *staticProvider) IsEnabled() bool { return true }

func (p *staticProvider) GetLatest(ctx context.Context, count int) ([]models.RawArticle, error) {
	return p.articles, p.err
}

func (p *staticProvider) Search(ctx context.Context, keyword string, daysBack, count int) ([]models.RawArticle, error) {
	return p.articles, p.err
}

type positiveClassifier struct{}

func (positiveClassifier) Classify(ctx context.Context, text string) (map[models.Label]float64, error) {
	return map[models.Label]float64{
		models.LabelPositive: 0.8,
		models.LabelNeutral:  0.1,
		models.LabelNegative: 0.1,
	}, nil
}

type memoryStore struct {
	saved []models.ScoredArticle
	err   error
}

func (s *memoryStore) SaveArticles(ctx context.Context, articles []models.ScoredArticle) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, articles...)
	return nil
}

func (s *memoryStore) CleanupOld(ctx context.Context, retention time.Duration) error {
	return nil
}

type memorySink struct {
	buckets []models.TrendBucket
}

func (s *memorySink) Add(buckets ...models.TrendBucket) {
	s.buckets = append(s.buckets, buckets...)
}

type memoryNotifier struct {
	notified []string
}

func (n *memoryNotifier) NotifyArticle(article *models.ScoredArticle) error {
	n.notified = append(n.notified, article.URL)
	return nil
}

func newTestNewsWorker(providers []news.Provider, store ArticleStore, sink TrendSink, notifier ArticleNotifier) *NewsWorker {
	return NewNewsWorker(
		news.NewAggregator(providers, nil),
		sentiment.NewEngine(positiveClassifier{}, sentiment.Config{}),
		sentiment.NewSymbolExtractor([]string{"AAPL"}, nil),
		trends.NewAggregator(models.GranularityHour),
		store,
		sink,
		notifier,
		10,
		time.Hour,
	)
}

func TestNewsWorker_Run(t *testing.T) {
	// Published long enough ago that its hourly bucket is closed
	publishedAt := time.Now().UTC().Add(-3 * time.Hour)

	provider := &staticProvider{name: "rss", articles: []models.RawArticle{
		{
			URL:         "https://example.com/story/1",
			SourceID:    "rss",
			Title:       "AAPL beats earnings estimates",
			Body:        "Apple reported record quarterly profit.",
			PublishedAt: publishedAt,
			FetchedAt:   time.Now().UTC(),
		},
	}}

	store := &memoryStore{}
	sink := &memorySink{}
	notifier := &memoryNotifier{}

	worker := newTestNewsWorker([]news.Provider{provider}, store, sink, notifier)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 saved article, got %d", len(store.saved))
	}

	saved := store.saved[0]
	if saved.Sentiment == nil || saved.Sentiment.Label != models.LabelPositive {
		t.Error("Saved article should carry positive sentiment")
	}
	if len(saved.RelatedSymbols) != 1 || saved.RelatedSymbols[0] != "AAPL" {
		t.Errorf("Expected related symbol AAPL, got %v", saved.RelatedSymbols)
	}
	if saved.ScoredAt.IsZero() {
		t.Error("ScoredAt should be set")
	}

	// The article's hourly bucket already closed, so the sink gets it
	if len(sink.buckets) == 0 {
		t.Error("Closed trend buckets should reach the sink")
	}

	if len(notifier.notified) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(notifier.notified))
	}
}

func TestNewsWorker_Run_NoArticles(t *testing.T) {
	store := &memoryStore{}
	worker := newTestNewsWorker([]news.Provider{&staticProvider{name: "rss"}}, store, nil, nil)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("Nothing should be saved, got %d", len(store.saved))
	}
}

func TestNewsWorker_Run_DrainsClosedBucketsWithoutSink(t *testing.T) {
	// Published long enough ago that its hourly bucket is closed
	provider := &staticProvider{name: "rss", articles: []models.RawArticle{
		{
			URL:         "https://example.com/story/1",
			SourceID:    "rss",
			Title:       "AAPL beats earnings estimates",
			Body:        "Apple reported record quarterly profit.",
			PublishedAt: time.Now().UTC().Add(-3 * time.Hour),
			FetchedAt:   time.Now().UTC(),
		},
	}}

	trendAgg := trends.NewAggregator(models.GranularityHour)
	worker := NewNewsWorker(
		news.NewAggregator([]news.Provider{provider}, nil),
		sentiment.NewEngine(positiveClassifier{}, sentiment.Config{}),
		sentiment.NewSymbolExtractor([]string{"AAPL"}, nil),
		trendAgg,
		&memoryStore{},
		nil,
		nil,
		10,
		time.Hour,
	)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Even with no sink the cycle must evict closed buckets, or they
	// accumulate in memory across cycles
	if leftover := trendAgg.DrainClosed(time.Now().UTC()); len(leftover) != 0 {
		t.Errorf("Expected closed buckets evicted during the cycle, %d remain", len(leftover))
	}
}

func TestNewsWorker_Run_StoreFailureIsNotFatal(t *testing.T) {
	provider := &staticProvider{name: "rss", articles: []models.RawArticle{
		{URL: "https://example.com/a", SourceID: "rss", Title: "up", Body: "gains", PublishedAt: time.Now().UTC()},
	}}
	store := &memoryStore{err: errors.New("database down")}

	worker := newTestNewsWorker([]news.Provider{provider}, store, nil, nil)

	// A failed save is logged, not propagated: the cycle still counts
	if err := worker.Run(context.Background()); err != nil {
		t.Errorf("Run should survive a store failure, got %v", err)
	}
}

func TestNewsWorker_Run_CancelledContext(t *testing.T) {
	provider := &staticProvider{name: "rss", articles: []models.RawArticle{
		{URL: "https://example.com/a", SourceID: "rss", Title: "t", PublishedAt: time.Now().UTC()},
	}}

	worker := newTestNewsWorker([]news.Provider{provider}, &memoryStore{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := worker.Run(ctx); err == nil {
		t.Error("Run with cancelled context should fail")
	}
}
