package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/clickhouse"
	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/database"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/internal/adapters/news"
	"github.com/selivandex/market-pulse/internal/adapters/price"
	"github.com/selivandex/market-pulse/internal/adapters/telegram"
	"github.com/selivandex/market-pulse/internal/indicators"
	"github.com/selivandex/market-pulse/internal/sentiment"
	"github.com/selivandex/market-pulse/internal/trends"
	"github.com/selivandex/market-pulse/internal/workers"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Market Pulse pipeline starting...",
		zap.Duration("news_interval", cfg.News.Interval),
		zap.Duration("prices_interval", cfg.Prices.Interval),
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Shared rate-limited fetcher for all outbound HTTP
	limiter := fetch.NewHostLimiter(cfg.Fetch.RequestsPerMinute, nil)
	fetcher := fetch.New(limiter,
		fetch.WithMaxBackoff(cfg.Fetch.MaxBackoff),
		fetch.WithCallTimeout(cfg.Fetch.CallTimeout),
	)

	// News collection
	providers := news.BuildProviders(&cfg.News, &cfg.Fetch, fetcher)
	if len(providers) == 0 {
		return fmt.Errorf("no news providers enabled")
	}
	aggregator := news.NewAggregator(providers, cfg.News.SourcePriority)

	// Sentiment scoring
	engine := sentiment.NewEngine(buildClassifier(cfg), sentiment.Config{
		ReliabilityThreshold: cfg.Sentiment.ReliabilityThreshold,
		HeadlineWeight:       cfg.Sentiment.HeadlineWeight,
		BodyWeight:           cfg.Sentiment.BodyWeight,
		MaxTextLength:        cfg.Sentiment.MaxTextLength,
		BatchSize:            cfg.Sentiment.BatchSize,
	})
	extractor := sentiment.NewSymbolExtractor(cfg.Prices.Watchlist, nil)

	// In-memory trend accumulator
	trendAgg := trends.NewAggregator()

	// Optional ClickHouse sink for closed trend buckets
	var trendSink workers.TrendSink
	if cfg.ClickHouse.Enabled {
		chdb, err := clickhouse.Connect(&cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer chdb.Close()

		writer := clickhouse.NewBatchWriter(clickhouse.NewRepository(chdb), 100, time.Minute)
		defer writer.Close()

		trendSink = writer
	}

	// Optional Telegram alerting
	var notifier workers.ArticleNotifier
	if cfg.Telegram.BotToken != "" {
		tgNotifier, err := telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			logger.Error("failed to create telegram notifier", zap.Error(err))
		} else {
			notifier = tgNotifier
		}
	}

	// Prices and indicators
	priceProvider := price.NewAlphaVantageProvider(cfg.Prices.BaseURL, cfg.Prices.APIKey, fetcher, &cfg.Fetch)
	indicatorEngine := indicators.NewEngine(cfg.Prices.SMAPeriods, cfg.Prices.EMAPeriods)

	newsWorker := workers.NewNewsWorker(
		aggregator,
		engine,
		extractor,
		trendAgg,
		news.NewRepository(db),
		trendSink,
		notifier,
		cfg.News.CountPerSource,
		cfg.News.Retention,
	)

	pricesWorker := workers.NewPricesWorker(
		priceProvider,
		indicatorEngine,
		price.NewRepository(db),
		cfg.Prices.Watchlist,
		cfg.Prices.LookbackDays,
	)

	group := worker.NewWorkerGroup(ctx)
	group.Add(newsWorker, cfg.News.Interval)
	group.Add(pricesWorker, cfg.Prices.Interval)
	group.Start()

	logger.Info("pipeline running",
		zap.Int("news_providers", len(providers)),
		zap.Int("watchlist_symbols", len(cfg.Prices.Watchlist)),
	)

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	group.Stop(shutdownTimeout)

	logger.Info("shutdown complete")
	return nil
}

// buildClassifier prefers the OpenAI classifier when an API key is
// configured and falls back to the built-in lexicon otherwise.
func buildClassifier(cfg *config.Config) sentiment.Classifier {
	if cfg.Sentiment.OpenAIKey != "" {
		logger.Info("using OpenAI sentiment classifier",
			zap.String("model", cfg.Sentiment.OpenAIModel),
		)
		return sentiment.NewOpenAIClassifier(cfg.Sentiment.OpenAIKey, cfg.Sentiment.OpenAIModel)
	}

	logger.Info("using lexicon sentiment classifier")
	return sentiment.NewLexiconClassifier()
}
