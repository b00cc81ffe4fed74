package news

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/database"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Repository stores scored articles keyed by URL. Re-fetched articles
// upsert onto the existing row, which keeps at-least-once delivery
// idempotent.
type Repository struct {
	db *database.DB
}

// NewRepository creates new article repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveArticles upserts scored articles by URL
func (r *Repository) SaveArticles(ctx context.Context, articles []models.ScoredArticle) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (
			url, source_id, title, body, published_at, fetched_at,
			label, score_positive, score_neutral, score_negative,
			confidence, reliable, related_symbols, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (url) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			label = EXCLUDED.label,
			score_positive = EXCLUDED.score_positive,
			score_neutral = EXCLUDED.score_neutral,
			score_negative = EXCLUDED.score_negative,
			confidence = EXCLUDED.confidence,
			reliable = EXCLUDED.reliable,
			related_symbols = EXCLUDED.related_symbols,
			scored_at = EXCLUDED.scored_at,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, article := range articles {
		if article.Sentiment == nil {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			article.URL,
			article.SourceID,
			article.Title,
			article.Body,
			article.PublishedAt,
			article.FetchedAt,
			string(article.Sentiment.Label),
			article.Sentiment.Scores[models.LabelPositive],
			article.Sentiment.Scores[models.LabelNeutral],
			article.Sentiment.Scores[models.LabelNegative],
			article.Sentiment.Confidence,
			article.Sentiment.Reliable,
			pq.Array(article.RelatedSymbols),
			article.ScoredAt,
		)
		if err != nil {
			logger.Warn("failed to save article",
				zap.String("url", article.URL),
				zap.Error(err),
			)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	logger.Debug("saved articles",
		zap.Int("total", len(articles)),
		zap.Int("saved", saved),
	)

	return nil
}

// GetRecent returns articles published within the given window,
// newest first
func (r *Repository) GetRecent(ctx context.Context, since time.Duration, limit int) ([]models.ScoredArticle, error) {
	cutoff := time.Now().UTC().Add(-since)

	rows, err := r.db.DB().QueryxContext(ctx, `
		SELECT url, source_id, title, body, published_at, fetched_at,
		       label, score_positive, score_neutral, score_negative,
		       confidence, reliable, related_symbols, scored_at
		FROM articles
		WHERE published_at > $1
		ORDER BY published_at DESC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]models.ScoredArticle, 0)
	for rows.Next() {
		var article models.ScoredArticle
		article.Sentiment = &models.ScoreResult{}
		var label string
		var positive, neutral, negative float64
		var symbols pq.StringArray

		if err := rows.Scan(
			&article.URL,
			&article.SourceID,
			&article.Title,
			&article.Body,
			&article.PublishedAt,
			&article.FetchedAt,
			&label,
			&positive,
			&neutral,
			&negative,
			&article.Sentiment.Confidence,
			&article.Sentiment.Reliable,
			&symbols,
			&article.ScoredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}

		article.Sentiment.Label = models.Label(label)
		article.Sentiment.Scores = map[models.Label]float64{
			models.LabelPositive: positive,
			models.LabelNeutral:  neutral,
			models.LabelNegative: negative,
		}
		article.RelatedSymbols = symbols
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// CleanupOld deletes articles older than the retention window
func (r *Repository) CleanupOld(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)

	result, err := r.db.DB().ExecContext(ctx, `DELETE FROM articles WHERE published_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup articles: %w", err)
	}

	deleted, _ := result.RowsAffected()
	logger.Debug("cleaned up old articles",
		zap.Int64("deleted", deleted),
	)

	return nil
}
