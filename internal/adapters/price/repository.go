package price

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/database"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Repository stores price bars keyed by (symbol, date). Providers
// revise recent bars, so a later fetch for the same key overwrites.
type Repository struct {
	db *database.DB
}

// NewRepository creates new price bar repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveBars upserts bars with their computed indicators
func (r *Repository) SaveBars(ctx context.Context, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_bars (
			symbol, date, open, high, low, close, volume, indicators, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			indicators = EXCLUDED.indicators,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := 0
	for _, bar := range bars {
		var indicatorsJSON []byte
		if bar.Indicators != nil {
			indicatorsJSON, err = json.Marshal(bar.Indicators)
			if err != nil {
				logger.Warn("failed to encode indicators",
					zap.String("symbol", bar.Symbol),
					zap.Time("date", bar.Date),
					zap.Error(err),
				)
				indicatorsJSON = nil
			}
		}

		_, err := stmt.ExecContext(ctx,
			bar.Symbol,
			bar.Date,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			indicatorsJSON,
			now,
		)
		if err != nil {
			logger.Warn("failed to save price bar",
				zap.String("symbol", bar.Symbol),
				zap.Time("date", bar.Date),
				zap.Error(err),
			)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logger.Debug("saved price bars",
		zap.Int("total", len(bars)),
		zap.Int("saved", saved),
	)

	return nil
}

// GetBars returns up to limit most recent bars for symbol, ordered by
// date ascending
func (r *Repository) GetBars(ctx context.Context, symbol string, limit int) ([]models.PriceBar, error) {
	rows, err := r.db.DB().QueryxContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, indicators
		FROM (
			SELECT symbol, date, open, high, low, close, volume, indicators
			FROM price_bars
			WHERE symbol = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	bars := make([]models.PriceBar, 0, limit)
	for rows.Next() {
		var bar models.PriceBar
		var indicatorsJSON []byte

		if err := rows.Scan(
			&bar.Symbol,
			&bar.Date,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
			&indicatorsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}

		if len(indicatorsJSON) > 0 {
			var set models.IndicatorSet
			if err := json.Unmarshal(indicatorsJSON, &set); err == nil {
				bar.Indicators = &set
			}
		}

		bars = append(bars, bar)
	}

	return bars, rows.Err()
}
