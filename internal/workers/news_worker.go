package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/news"
	"github.com/selivandex/market-pulse/internal/sentiment"
	"github.com/selivandex/market-pulse/internal/trends"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// ArticleStore persists scored articles
type ArticleStore interface {
	SaveArticles(ctx context.Context, articles []models.ScoredArticle) error
	CleanupOld(ctx context.Context, retention time.Duration) error
}

// TrendSink receives closed trend buckets
type TrendSink interface {
	Add(buckets ...models.TrendBucket)
}

// ArticleNotifier pushes alerts for high-impact articles
type ArticleNotifier interface {
	NotifyArticle(article *models.ScoredArticle) error
}

// NewsWorker runs one full ingestion cycle: collect articles from all
// enabled providers, score each through the sentiment engine, extract
// related symbols, feed the trend aggregator and persist the results.
type NewsWorker struct {
	aggregator *news.Aggregator
	engine     *sentiment.Engine
	extractor  *sentiment.SymbolExtractor
	trends     *trends.Aggregator
	store      ArticleStore
	sink       TrendSink
	notifier   ArticleNotifier
	count      int
	retention  time.Duration
}

// NewNewsWorker creates new news worker
func NewNewsWorker(
	aggregator *news.Aggregator,
	engine *sentiment.Engine,
	extractor *sentiment.SymbolExtractor,
	trendAgg *trends.Aggregator,
	store ArticleStore,
	sink TrendSink,
	notifier ArticleNotifier,
	countPerSource int,
	retention time.Duration,
) *NewsWorker {
	return &NewsWorker{
		aggregator: aggregator,
		engine:     engine,
		extractor:  extractor,
		trends:     trendAgg,
		store:      store,
		sink:       sink,
		notifier:   notifier,
		count:      countPerSource,
		retention:  retention,
	}
}

// Name implements worker.Worker
func (w *NewsWorker) Name() string {
	return "news"
}

// Run executes one collection and scoring cycle
func (w *NewsWorker) Run(ctx context.Context) error {
	startTime := time.Now()

	articles, err := w.aggregator.Collect(ctx, nil, w.count)
	if err != nil {
		return err
	}

	if len(articles) == 0 {
		logger.Debug("no new articles this cycle")
		return nil
	}

	scored := w.scoreArticles(ctx, articles)

	for i := range scored {
		w.trends.Ingest(&scored[i])
	}

	if w.store != nil && len(scored) > 0 {
		if err := w.store.SaveArticles(ctx, scored); err != nil {
			logger.Error("failed to save articles", zap.Error(err))
		}
	}

	if w.store != nil && w.retention > 0 {
		if err := w.store.CleanupOld(ctx, w.retention); err != nil {
			logger.Warn("failed to clean up old articles", zap.Error(err))
		}
	}

	// Closed buckets leave the aggregator every cycle; without a sink
	// they are simply discarded instead of piling up in memory
	if closed := w.trends.DrainClosed(time.Now().UTC()); len(closed) > 0 && w.sink != nil {
		w.sink.Add(closed...)
	}

	w.notify(scored)

	logger.Info("news cycle completed",
		zap.Int("collected", len(articles)),
		zap.Int("scored", len(scored)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}

// scoreArticles scores each article individually; a failing article is
// logged and skipped without affecting the rest of the cycle.
func (w *NewsWorker) scoreArticles(ctx context.Context, articles []models.RawArticle) []models.ScoredArticle {
	scored := make([]models.ScoredArticle, 0, len(articles))

	for i := range articles {
		if ctx.Err() != nil {
			break
		}

		article := articles[i]

		result, err := w.engine.AnalyzeWithContext(ctx, article.Body, article.Title)
		if err != nil {
			logger.Warn("failed to score article",
				zap.String("url", article.URL),
				zap.String("source", article.SourceID),
				zap.Error(err),
			)
			continue
		}

		var symbols []string
		if w.extractor != nil {
			symbols = w.extractor.Extract(article.Title + " " + article.Body)
		}

		scored = append(scored, models.ScoredArticle{
			RawArticle:     article,
			Sentiment:      result,
			RelatedSymbols: symbols,
			ScoredAt:       time.Now().UTC(),
		})
	}

	return scored
}

func (w *NewsWorker) notify(scored []models.ScoredArticle) {
	if w.notifier == nil {
		return
	}

	for i := range scored {
		if err := w.notifier.NotifyArticle(&scored[i]); err != nil {
			logger.Warn("failed to send article alert",
				zap.String("url", scored[i].URL),
				zap.Error(err),
			)
		}
	}
}
