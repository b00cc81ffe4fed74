package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// RSSProvider fetches articles from an RSS 2.0 feed
type RSSProvider struct {
	sourceID string
	feedURL  string
	keywords []string
	fetcher  *fetch.Fetcher
	fetchCfg *config.FetchConfig
}

// NewRSSProvider creates new RSS provider
func NewRSSProvider(sourceID, feedURL string, keywords []string, fetcher *fetch.Fetcher, fetchCfg *config.FetchConfig) *RSSProvider {
	return &RSSProvider{
		sourceID: sourceID,
		feedURL:  feedURL,
		keywords: keywords,
		fetcher:  fetcher,
		fetchCfg: fetchCfg,
	}
}

func (r *RSSProvider) Name() string {
	return r.sourceID
}

func (r *RSSProvider) IsEnabled() bool {
	return r.feedURL != ""
}

// rssDocument maps the subset of RSS 2.0 the pipeline consumes
type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

func (r *RSSProvider) GetLatest(ctx context.Context, count int) ([]models.RawArticle, error) {
	items, err := r.fetchFeed(ctx)
	if err != nil {
		return nil, &SourceError{SourceID: r.sourceID, Cause: err}
	}

	articles := r.normalize(items, count, "", 0)

	logger.Debug("fetched RSS articles",
		zap.String("source", r.sourceID),
		zap.Int("count", len(articles)),
	)

	return articles, nil
}

// Search filters the feed client-side; RSS has no query parameter
func (r *RSSProvider) Search(ctx context.Context, keyword string, daysBack, count int) ([]models.RawArticle, error) {
	items, err := r.fetchFeed(ctx)
	if err != nil {
		return nil, &SourceError{SourceID: r.sourceID, Cause: err}
	}

	return r.normalize(items, count, keyword, daysBack), nil
}

func (r *RSSProvider) fetchFeed(ctx context.Context) ([]rssItem, error) {
	_, body, err := r.fetcher.FetchWithRetry(ctx,
		fetch.Request{URL: r.feedURL},
		r.fetchCfg.MaxRetries,
		r.fetchCfg.BackoffFactor,
	)
	if err != nil {
		return nil, err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return doc.Channel.Items, nil
}

// normalize converts feed items to RawArticle, applying the configured
// relevance keywords plus an optional search keyword and age cutoff
func (r *RSSProvider) normalize(items []rssItem, count int, keyword string, daysBack int) []models.RawArticle {
	now := time.Now().UTC()
	var cutoff time.Time
	if daysBack > 0 {
		cutoff = now.AddDate(0, 0, -daysBack)
	}

	articles := make([]models.RawArticle, 0, count)
	for _, item := range items {
		if len(articles) >= count {
			break
		}

		title := strings.TrimSpace(item.Title)
		description := strings.TrimSpace(item.Description)
		if title == "" || item.Link == "" {
			continue
		}
		if !isRelevant(title+" "+description, r.keywords) {
			continue
		}
		if keyword != "" && !isRelevant(title+" "+description, []string{keyword}) {
			continue
		}

		publishedAt := parsePubDate(item.PubDate, now)
		if daysBack > 0 && publishedAt.Before(cutoff) {
			continue
		}

		articles = append(articles, models.RawArticle{
			SourceID:    r.sourceID,
			URL:         strings.TrimSpace(item.Link),
			Title:       title,
			Body:        description,
			PublishedAt: publishedAt,
			FetchedAt:   now,
		})
	}

	return articles
}

// parsePubDate tries the date layouts seen in the wild, falling back
// to the fetch time so the article is not dropped
func parsePubDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
