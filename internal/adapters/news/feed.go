package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// FeedProvider fetches articles from an aggregated JSON story feed
// (outbound-feed endpoints publishers expose alongside their RSS)
type FeedProvider struct {
	sourceID string
	feedURL  string
	keywords []string
	fetcher  *fetch.Fetcher
	fetchCfg *config.FetchConfig
}

// NewFeedProvider creates new aggregated feed provider
func NewFeedProvider(sourceID, feedURL string, keywords []string, fetcher *fetch.Fetcher, fetchCfg *config.FetchConfig) *FeedProvider {
	return &FeedProvider{
		sourceID: sourceID,
		feedURL:  feedURL,
		keywords: keywords,
		fetcher:  fetcher,
		fetchCfg: fetchCfg,
	}
}

func (f *FeedProvider) Name() string {
	return f.sourceID
}

func (f *FeedProvider) IsEnabled() bool {
	return f.feedURL != ""
}

type feedStory struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Headlines struct {
		Basic string `json:"basic"`
	} `json:"headlines"`
	Description struct {
		Basic string `json:"basic"`
	} `json:"description"`
	DisplayDate time.Time `json:"display_date"`
}

func (f *FeedProvider) GetLatest(ctx context.Context, count int) ([]models.RawArticle, error) {
	url := fmt.Sprintf("%s?size=%d", f.feedURL, count)

	_, body, err := f.fetcher.FetchWithRetry(ctx,
		fetch.Request{URL: url},
		f.fetchCfg.MaxRetries,
		f.fetchCfg.BackoffFactor,
	)
	if err != nil {
		return nil, &SourceError{SourceID: f.sourceID, Cause: err}
	}

	var stories []feedStory
	if err := json.Unmarshal(body, &stories); err != nil {
		return nil, &SourceError{SourceID: f.sourceID, Cause: fmt.Errorf("failed to decode feed: %w", err)}
	}

	articles := f.normalize(stories, count, "", 0)

	logger.Debug("fetched aggregated feed articles",
		zap.String("source", f.sourceID),
		zap.Int("count", len(articles)),
	)

	return articles, nil
}

// Search filters the feed client-side by keyword and age
func (f *FeedProvider) Search(ctx context.Context, keyword string, daysBack, count int) ([]models.RawArticle, error) {
	// Over-fetch so the keyword filter still yields up to count items
	url := fmt.Sprintf("%s?size=%d", f.feedURL, count*3)

	_, body, err := f.fetcher.FetchWithRetry(ctx,
		fetch.Request{URL: url},
		f.fetchCfg.MaxRetries,
		f.fetchCfg.BackoffFactor,
	)
	if err != nil {
		return nil, &SourceError{SourceID: f.sourceID, Cause: err}
	}

	var stories []feedStory
	if err := json.Unmarshal(body, &stories); err != nil {
		return nil, &SourceError{SourceID: f.sourceID, Cause: fmt.Errorf("failed to decode feed: %w", err)}
	}

	return f.normalize(stories, count, keyword, daysBack), nil
}

func (f *FeedProvider) normalize(stories []feedStory, count int, keyword string, daysBack int) []models.RawArticle {
	now := time.Now().UTC()
	var cutoff time.Time
	if daysBack > 0 {
		cutoff = now.AddDate(0, 0, -daysBack)
	}

	articles := make([]models.RawArticle, 0, count)
	for _, story := range stories {
		if len(articles) >= count {
			break
		}

		// Skip non-story entries (galleries, videos)
		if story.Type != "" && story.Type != "story" {
			continue
		}

		title := strings.TrimSpace(story.Headlines.Basic)
		description := strings.TrimSpace(story.Description.Basic)
		if title == "" || story.URL == "" {
			continue
		}
		if !isRelevant(title+" "+description, f.keywords) {
			continue
		}
		if keyword != "" && !isRelevant(title+" "+description, []string{keyword}) {
			continue
		}
		if daysBack > 0 && story.DisplayDate.Before(cutoff) {
			continue
		}

		publishedAt := story.DisplayDate.UTC()
		if publishedAt.IsZero() {
			publishedAt = now
		}

		articles = append(articles, models.RawArticle{
			SourceID:    f.sourceID,
			URL:         story.URL,
			Title:       title,
			Body:        description,
			PublishedAt: publishedAt,
			FetchedAt:   now,
		})
	}

	return articles
}
