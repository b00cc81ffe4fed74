package clickhouse

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Connect opens a ClickHouse connection through the database/sql driver
func Connect(cfg *config.ClickHouseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("clickhouse", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	logger.Info("ClickHouse connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return db, nil
}

// Repository writes closed trend buckets to ClickHouse for time-series
// queries. The table is append-only; buckets arrive once, after their
// interval has fully elapsed.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new ClickHouse repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveTrendBuckets inserts closed trend buckets
func (r *Repository) SaveTrendBuckets(ctx context.Context, buckets []models.TrendBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO sentiment_trends
		(interval_start, symbol, granularity, article_count, avg_positive, avg_neutral, avg_negative, dominant_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bucket := range buckets {
		_, err = stmt.ExecContext(ctx,
			bucket.IntervalStart,
			bucket.Symbol,
			string(bucket.Granularity),
			bucket.Count,
			bucket.AvgPositive(),
			bucket.AvgNeutral(),
			bucket.AvgNegative(),
			string(bucket.DominantLabel()),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert trend bucket: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("saved trend buckets to ClickHouse",
		zap.Int("count", len(buckets)),
	)

	return nil
}
