package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Provider is the capability interface implemented by every news
// source adapter. A SourceError from either call means the source
// produced nothing this cycle; it is never fatal to the pipeline.
type Provider interface {
	// Name returns the source identifier
	Name() string

	// IsEnabled returns whether provider is enabled
	IsEnabled() bool

	// GetLatest fetches up to count latest articles
	GetLatest(ctx context.Context, count int) ([]models.RawArticle, error)

	// Search fetches up to count articles matching keyword within the
	// last daysBack days
	Search(ctx context.Context, keyword string, daysBack, count int) ([]models.RawArticle, error)
}

// SourceError marks one adapter's failure for one cycle
type SourceError struct {
	SourceID string
	Cause    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.SourceID, e.Cause)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// BuildProviders constructs the configured source adapters, all
// sharing the given fetcher
func BuildProviders(cfg *config.NewsConfig, fetchCfg *config.FetchConfig, fetcher *fetch.Fetcher) []Provider {
	providers := make([]Provider, 0)

	for i, feedURL := range cfg.RSSFeeds {
		sourceID := "rss"
		if len(cfg.RSSFeeds) > 1 {
			sourceID = fmt.Sprintf("rss_%d", i+1)
		}
		providers = append(providers, NewRSSProvider(sourceID, feedURL, cfg.Keywords, fetcher, fetchCfg))
	}

	if cfg.FeedEnabled {
		providers = append(providers, NewFeedProvider("feed", cfg.FeedURL, cfg.Keywords, fetcher, fetchCfg))
	}

	if cfg.NewsAPIEnabled {
		providers = append(providers, NewNewsAPIProvider("newsapi", cfg.NewsAPIKey, cfg.Keywords, fetcher, fetchCfg))
	}

	return providers
}

// isRelevant checks if article text matches any of the keywords. An
// empty keyword list matches everything.
func isRelevant(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	lowerText := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowerText, strings.ToLower(keyword)) {
			return true
		}
	}

	return false
}
