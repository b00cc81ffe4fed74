package trends

import (
	"sort"
	"sync"
	"time"

	"github.com/selivandex/market-pulse/pkg/models"
)

// momentumThreshold separates improving/declining from stable
const momentumThreshold = 0.05

type bucketKey struct {
	symbol string
	start  int64
}

// Aggregator buckets scored articles by time interval and related
// symbol, one bucket set per granularity. Buckets only ever grow while
// their interval is open; ingestion is serialized by the mutex so a
// bucket never has concurrent writers.
type Aggregator struct {
	mu            sync.Mutex
	granularities []models.Granularity
	buckets       map[models.Granularity]map[bucketKey]*models.TrendBucket
}

// NewAggregator creates an aggregator maintaining the given
// granularities (all of them when none are passed)
func NewAggregator(granularities ...models.Granularity) *Aggregator {
	if len(granularities) == 0 {
		granularities = models.Granularities
	}

	buckets := make(map[models.Granularity]map[bucketKey]*models.TrendBucket, len(granularities))
	for _, g := range granularities {
		buckets[g] = make(map[bucketKey]*models.TrendBucket)
	}

	return &Aggregator{
		granularities: granularities,
		buckets:       buckets,
	}
}

// Ingest adds one scored article to the bucket of every related symbol
// (or GENERAL for symbol-less articles) at every granularity
func (a *Aggregator) Ingest(article *models.ScoredArticle) {
	if article.Sentiment == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, g := range a.granularities {
		start := g.Floor(article.PublishedAt)
		for _, symbol := range article.Symbols() {
			key := bucketKey{symbol: symbol, start: start.Unix()}

			bucket, ok := a.buckets[g][key]
			if !ok {
				bucket = &models.TrendBucket{
					Symbol:        symbol,
					IntervalStart: start,
					Granularity:   g,
				}
				a.buckets[g][key] = bucket
			}

			bucket.Count++
			bucket.SumPositive += article.Sentiment.Scores[models.LabelPositive]
			bucket.SumNeutral += article.Sentiment.Scores[models.LabelNeutral]
			bucket.SumNegative += article.Sentiment.Scores[models.LabelNegative]
		}
	}
}

// GetTrend returns the non-empty buckets for symbol (GENERAL when
// empty) within [rangeStart, rangeEnd) at the given granularity,
// sorted by interval start, plus a summary combining them.
func (a *Aggregator) GetTrend(symbol string, g models.Granularity, rangeStart, rangeEnd time.Time) ([]models.TrendBucket, models.TrendSummary) {
	if symbol == "" {
		symbol = models.SymbolGeneral
	}

	a.mu.Lock()
	selected := make([]models.TrendBucket, 0)
	for _, bucket := range a.buckets[g] {
		if bucket.Symbol != symbol || bucket.Count == 0 {
			continue
		}
		if bucket.IntervalStart.Before(rangeStart) || !bucket.IntervalStart.Before(rangeEnd) {
			continue
		}
		selected = append(selected, *bucket)
	}
	a.mu.Unlock()

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].IntervalStart.Before(selected[j].IntervalStart)
	})

	return selected, summarize(selected)
}

// DrainClosed removes and returns every bucket whose interval has
// fully elapsed relative to now. Open buckets stay in memory as valid
// partial aggregates.
func (a *Aggregator) DrainClosed(now time.Time) []models.TrendBucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	var closed []models.TrendBucket
	for _, g := range a.granularities {
		for key, bucket := range a.buckets[g] {
			if bucket.Closed(now) {
				closed = append(closed, *bucket)
				delete(a.buckets[g], key)
			}
		}
	}

	sort.Slice(closed, func(i, j int) bool {
		if !closed[i].IntervalStart.Equal(closed[j].IntervalStart) {
			return closed[i].IntervalStart.Before(closed[j].IntervalStart)
		}
		if closed[i].Symbol != closed[j].Symbol {
			return closed[i].Symbol < closed[j].Symbol
		}
		return closed[i].Granularity < closed[j].Granularity
	})

	return closed
}

// summarize combines buckets into count-weighted averages and a trend
// direction derived from the last two buckets' net sentiment
func summarize(buckets []models.TrendBucket) models.TrendSummary {
	summary := models.TrendSummary{
		UpdatedAt:     time.Now().UTC(),
		Direction:     "stable",
		DominantLabel: models.LabelNeutral,
		BucketCount:   len(buckets),
	}

	if len(buckets) == 0 {
		return summary
	}

	var sumPositive, sumNeutral, sumNegative float64
	for _, bucket := range buckets {
		summary.TotalCount += bucket.Count
		sumPositive += bucket.SumPositive
		sumNeutral += bucket.SumNeutral
		sumNegative += bucket.SumNegative
	}

	total := float64(summary.TotalCount)
	summary.AvgPositive = sumPositive / total
	summary.AvgNeutral = sumNeutral / total
	summary.AvgNegative = sumNegative / total

	avgs := map[models.Label]float64{
		models.LabelPositive: summary.AvgPositive,
		models.LabelNeutral:  summary.AvgNeutral,
		models.LabelNegative: summary.AvgNegative,
	}
	bestScore := -1.0
	for _, label := range models.Labels {
		if avgs[label] > bestScore {
			summary.DominantLabel = label
			bestScore = avgs[label]
		}
	}

	if len(buckets) >= 2 {
		last := buckets[len(buckets)-1]
		previous := buckets[len(buckets)-2]
		summary.Momentum = last.NetSentiment() - previous.NetSentiment()

		if summary.Momentum > momentumThreshold {
			summary.Direction = "improving"
		} else if summary.Momentum < -momentumThreshold {
			summary.Direction = "declining"
		}
	}

	return summary
}
