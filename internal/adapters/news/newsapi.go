package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

const (
	newsAPIHeadlinesURL  = "https://newsapi.org/v2/top-headlines"
	newsAPIEverythingURL = "https://newsapi.org/v2/everything"
)

// NewsAPIProvider fetches articles from the NewsAPI keyed JSON API
type NewsAPIProvider struct {
	sourceID string
	apiKey   string
	keywords []string
	fetcher  *fetch.Fetcher
	fetchCfg *config.FetchConfig
}

// NewNewsAPIProvider creates new NewsAPI provider
func NewNewsAPIProvider(sourceID, apiKey string, keywords []string, fetcher *fetch.Fetcher, fetchCfg *config.FetchConfig) *NewsAPIProvider {
	return &NewsAPIProvider{
		sourceID: sourceID,
		apiKey:   apiKey,
		keywords: keywords,
		fetcher:  fetcher,
		fetchCfg: fetchCfg,
	}
}

func (n *NewsAPIProvider) Name() string {
	return n.sourceID
}

func (n *NewsAPIProvider) IsEnabled() bool {
	return n.apiKey != ""
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Content     string    `json:"content"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (n *NewsAPIProvider) GetLatest(ctx context.Context, count int) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("category", "business")
	params.Set("language", "en")
	params.Set("pageSize", fmt.Sprintf("%d", count))

	return n.query(ctx, newsAPIHeadlinesURL, params, count)
}

func (n *NewsAPIProvider) Search(ctx context.Context, keyword string, daysBack, count int) ([]models.RawArticle, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", count))
	if daysBack > 0 {
		from := time.Now().UTC().AddDate(0, 0, -daysBack)
		params.Set("from", from.Format("2006-01-02"))
	}

	return n.query(ctx, newsAPIEverythingURL, params, count)
}

func (n *NewsAPIProvider) query(ctx context.Context, endpoint string, params url.Values, count int) ([]models.RawArticle, error) {
	req := fetch.Request{
		URL:    endpoint + "?" + params.Encode(),
		Header: map[string][]string{"X-Api-Key": {n.apiKey}},
	}

	_, body, err := n.fetcher.FetchWithRetry(ctx, req, n.fetchCfg.MaxRetries, n.fetchCfg.BackoffFactor)
	if err != nil {
		return nil, &SourceError{SourceID: n.sourceID, Cause: err}
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SourceError{SourceID: n.sourceID, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	if resp.Status != "ok" {
		return nil, &SourceError{SourceID: n.sourceID, Cause: fmt.Errorf("api error: %s", resp.Message)}
	}

	now := time.Now().UTC()
	articles := make([]models.RawArticle, 0, count)
	for _, item := range resp.Articles {
		if len(articles) >= count {
			break
		}

		title := strings.TrimSpace(item.Title)
		if title == "" || item.URL == "" {
			continue
		}

		// Prefer full content over the teaser description
		content := strings.TrimSpace(item.Content)
		if content == "" {
			content = strings.TrimSpace(item.Description)
		}

		publishedAt := item.PublishedAt.UTC()
		if publishedAt.IsZero() {
			publishedAt = now
		}

		articles = append(articles, models.RawArticle{
			SourceID:    n.sourceID,
			URL:         item.URL,
			Title:       title,
			Body:        content,
			PublishedAt: publishedAt,
			FetchedAt:   now,
		})
	}

	logger.Debug("fetched NewsAPI articles",
		zap.String("source", n.sourceID),
		zap.Int("count", len(articles)),
	)

	return articles, nil
}
