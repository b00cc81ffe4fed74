package models

import "time"

// Granularity is the time unit used to floor timestamps into trend buckets
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Granularities lists all supported bucket granularities
var Granularities = []Granularity{GranularityHour, GranularityDay, GranularityWeek, GranularityMonth}

// Floor truncates t down to the start of its interval, in UTC.
// Weeks start on Monday.
func (g Granularity) Floor(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GranularityHour:
		return t.Truncate(time.Hour)
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday == 0
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Hour)
	}
}

// Next returns the start of the interval following start
func (g Granularity) Next(start time.Time) time.Time {
	switch g {
	case GranularityHour:
		return start.Add(time.Hour)
	case GranularityDay:
		return start.AddDate(0, 0, 1)
	case GranularityWeek:
		return start.AddDate(0, 0, 7)
	case GranularityMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.Add(time.Hour)
	}
}

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	for _, known := range Granularities {
		if g == known {
			return true
		}
	}
	return false
}

// TrendBucket accumulates sentiment for one (symbol, interval) pair.
// Sums only ever grow while the interval is open.
type TrendBucket struct {
	IntervalStart time.Time   `json:"interval_start" db:"interval_start"`
	Symbol        string      `json:"symbol" db:"symbol"`
	Granularity   Granularity `json:"granularity" db:"granularity"`
	Count         int         `json:"count" db:"count"`
	SumPositive   float64     `json:"sum_positive" db:"sum_positive"`
	SumNeutral    float64     `json:"sum_neutral" db:"sum_neutral"`
	SumNegative   float64     `json:"sum_negative" db:"sum_negative"`
}

// IntervalEnd returns the exclusive end of the bucket's interval
func (b *TrendBucket) IntervalEnd() time.Time {
	return b.Granularity.Next(b.IntervalStart)
}

// Closed reports whether the bucket's interval has fully elapsed
func (b *TrendBucket) Closed(now time.Time) bool {
	return !now.UTC().Before(b.IntervalEnd())
}

// AvgPositive returns the average positive score, 0 for empty buckets
func (b *TrendBucket) AvgPositive() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.SumPositive / float64(b.Count)
}

// AvgNeutral returns the average neutral score, 0 for empty buckets
func (b *TrendBucket) AvgNeutral() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.SumNeutral / float64(b.Count)
}

// AvgNegative returns the average negative score, 0 for empty buckets
func (b *TrendBucket) AvgNegative() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.SumNegative / float64(b.Count)
}

// DominantLabel returns the label with the highest average score
func (b *TrendBucket) DominantLabel() Label {
	avgs := map[Label]float64{
		LabelPositive: b.AvgPositive(),
		LabelNeutral:  b.AvgNeutral(),
		LabelNegative: b.AvgNegative(),
	}
	best := LabelNeutral
	bestScore := -1.0
	for _, label := range Labels {
		if avgs[label] > bestScore {
			best = label
			bestScore = avgs[label]
		}
	}
	return best
}

// TrendSummary combines a set of trend buckets
type TrendSummary struct {
	UpdatedAt     time.Time `json:"updated_at"`
	Direction     string    `json:"direction"` // improving, declining, stable
	DominantLabel Label     `json:"dominant_label"`
	Momentum      float64   `json:"momentum"` // change of net sentiment between last two buckets
	AvgPositive   float64   `json:"avg_positive"`
	AvgNeutral    float64   `json:"avg_neutral"`
	AvgNegative   float64   `json:"avg_negative"`
	TotalCount    int       `json:"total_count"`
	BucketCount   int       `json:"bucket_count"`
}

// NetSentiment returns average positive minus average negative
func (b *TrendBucket) NetSentiment() float64 {
	return b.AvgPositive() - b.AvgNegative()
}
