package news

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// Aggregator fans out across source adapters, merges results and
// removes duplicates. One failing adapter never aborts collection
// from the others.
type Aggregator struct {
	providers []Provider
	priority  []string
}

// NewAggregator creates new news aggregator
func NewAggregator(providers []Provider, priority []string) *Aggregator {
	return &Aggregator{
		providers: providers,
		priority:  priority,
	}
}

// Collect fetches up to countPerSource latest articles from each
// requested source (all enabled sources when sourceIDs is empty),
// deduplicates across sources and returns them ordered by PublishedAt
// descending with deterministic tie-breaks.
func (a *Aggregator) Collect(ctx context.Context, sourceIDs []string, countPerSource int) ([]models.RawArticle, error) {
	return a.fanOut(ctx, sourceIDs, func(ctx context.Context, p Provider) ([]models.RawArticle, error) {
		return p.GetLatest(ctx, countPerSource)
	})
}

// Search runs a keyword search across the requested sources with the
// same merge, dedup and ordering semantics as Collect
func (a *Aggregator) Search(ctx context.Context, sourceIDs []string, keyword string, daysBack, countPerSource int) ([]models.RawArticle, error) {
	return a.fanOut(ctx, sourceIDs, func(ctx context.Context, p Provider) ([]models.RawArticle, error) {
		return p.Search(ctx, keyword, daysBack, countPerSource)
	})
}

func (a *Aggregator) fanOut(ctx context.Context, sourceIDs []string, call func(context.Context, Provider) ([]models.RawArticle, error)) ([]models.RawArticle, error) {
	selected := a.selectProviders(sourceIDs)

	type result struct {
		sourceID string
		articles []models.RawArticle
		err      error
	}

	results := make(chan result, len(selected))
	for _, provider := range selected {
		go func(p Provider) {
			articles, err := call(ctx, p)
			results <- result{sourceID: p.Name(), articles: articles, err: err}
		}(provider)
	}

	allArticles := make([]models.RawArticle, 0)
	for range selected {
		res := <-results
		if res.err != nil {
			// One failing source means zero results for this cycle,
			// never a failed collection
			logger.Warn("news source failed, skipping for this cycle",
				zap.String("source", res.sourceID),
				zap.Error(res.err),
			)
			continue
		}
		allArticles = append(allArticles, res.articles...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deduplicated := Deduplicate(allArticles)
	sortArticles(deduplicated, a.priority)

	logger.Debug("collected news",
		zap.Int("sources", len(selected)),
		zap.Int("fetched", len(allArticles)),
		zap.Int("after_dedup", len(deduplicated)),
	)

	return deduplicated, nil
}

// selectProviders returns the enabled providers matching sourceIDs,
// or all enabled providers when sourceIDs is empty
func (a *Aggregator) selectProviders(sourceIDs []string) []Provider {
	wanted := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = true
	}

	selected := make([]Provider, 0, len(a.providers))
	for _, provider := range a.providers {
		if !provider.IsEnabled() {
			continue
		}
		if len(wanted) > 0 && !wanted[provider.Name()] {
			continue
		}
		selected = append(selected, provider)
	}
	return selected
}
