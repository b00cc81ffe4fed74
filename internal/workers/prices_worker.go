package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/price"
	"github.com/selivandex/market-pulse/internal/indicators"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// BarStore persists daily price bars with computed indicators
type BarStore interface {
	SaveBars(ctx context.Context, bars []models.PriceBar) error
}

// PricesWorker pulls daily OHLCV bars for each watchlist symbol,
// computes technical indicators over them and persists the result.
type PricesWorker struct {
	provider  price.Provider
	engine    *indicators.Engine
	store     BarStore
	watchlist []string
	lookback  int
}

// NewPricesWorker creates new prices worker
func NewPricesWorker(
	provider price.Provider,
	engine *indicators.Engine,
	store BarStore,
	watchlist []string,
	lookbackDays int,
) *PricesWorker {
	return &PricesWorker{
		provider:  provider,
		engine:    engine,
		store:     store,
		watchlist: watchlist,
		lookback:  lookbackDays,
	}
}

// Name implements worker.Worker
func (w *PricesWorker) Name() string {
	return "prices"
}

// Run executes one price update cycle. A failing symbol is logged and
// skipped; the cycle continues with the remaining watchlist.
func (w *PricesWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	updated := 0

	for _, symbol := range w.watchlist {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.updateSymbol(ctx, symbol); err != nil {
			logger.Warn("failed to update symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	logger.Info("prices cycle completed",
		zap.Int("symbols", len(w.watchlist)),
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}

func (w *PricesWorker) updateSymbol(ctx context.Context, symbol string) error {
	bars, err := w.provider.GetDailyBars(ctx, symbol, w.lookback)
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		logger.Debug("no bars returned", zap.String("symbol", symbol))
		return nil
	}

	enriched, err := w.engine.ComputeIndicators(bars)
	if err != nil {
		return err
	}

	if w.store != nil {
		return w.store.SaveBars(ctx, enriched)
	}

	return nil
}
