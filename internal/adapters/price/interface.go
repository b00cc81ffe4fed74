package price

import (
	"context"

	"github.com/selivandex/market-pulse/pkg/models"
)

// Provider fetches daily OHLCV bars for one symbol
type Provider interface {
	// Name returns provider name for logging
	Name() string

	// GetDailyBars fetches up to days daily bars ordered by date
	// ascending
	GetDailyBars(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
}
