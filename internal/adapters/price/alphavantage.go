package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/internal/adapters/config"
	"github.com/selivandex/market-pulse/internal/adapters/fetch"
	"github.com/selivandex/market-pulse/pkg/logger"
	"github.com/selivandex/market-pulse/pkg/models"
)

// AlphaVantageProvider fetches daily bars from the Alpha Vantage
// TIME_SERIES_DAILY endpoint
type AlphaVantageProvider struct {
	baseURL  string
	apiKey   string
	fetcher  *fetch.Fetcher
	fetchCfg *config.FetchConfig
}

// NewAlphaVantageProvider creates new Alpha Vantage provider
func NewAlphaVantageProvider(baseURL, apiKey string, fetcher *fetch.Fetcher, fetchCfg *config.FetchConfig) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		baseURL:  baseURL,
		apiKey:   apiKey,
		fetcher:  fetcher,
		fetchCfg: fetchCfg,
	}
}

func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

type dailySeriesResponse struct {
	ErrorMessage string                     `json:"Error Message"`
	Note         string                     `json:"Note"`
	Series       map[string]json.RawMessage `json:"Time Series (Daily)"`
}

type dailyEntry struct {
	Open   decimal.Decimal `json:"1. open"`
	High   decimal.Decimal `json:"2. high"`
	Low    decimal.Decimal `json:"3. low"`
	Close  decimal.Decimal `json:"4. close"`
	Volume decimal.Decimal `json:"5. volume"`
}

// GetDailyBars fetches up to days daily bars ordered by date ascending
func (p *AlphaVantageProvider) GetDailyBars(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("apikey", p.apiKey)
	if days > 100 {
		params.Set("outputsize", "full")
	}

	_, body, err := p.fetcher.FetchWithRetry(ctx,
		fetch.Request{URL: p.baseURL + "?" + params.Encode()},
		p.fetchCfg.MaxRetries,
		p.fetchCfg.BackoffFactor,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily bars for %s: %w", symbol, err)
	}

	var resp dailySeriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode daily bars for %s: %w", symbol, err)
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("provider error for %s: %s", symbol, resp.ErrorMessage)
	}
	if resp.Note != "" {
		return nil, fmt.Errorf("provider throttled request for %s: %s", symbol, resp.Note)
	}

	bars := make([]models.PriceBar, 0, len(resp.Series))
	for dateStr, raw := range resp.Series {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			logger.Warn("skipping bar with bad date",
				zap.String("symbol", symbol),
				zap.String("date", dateStr),
			)
			continue
		}

		var entry dailyEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("skipping unparsable bar",
				zap.String("symbol", symbol),
				zap.String("date", dateStr),
				zap.Error(err),
			)
			continue
		}

		bars = append(bars, models.PriceBar{
			Symbol: symbol,
			Date:   date.UTC(),
			Open:   entry.Open,
			High:   entry.High,
			Low:    entry.Low,
			Close:  entry.Close,
			Volume: entry.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	logger.Debug("fetched daily bars",
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)),
	)

	return bars, nil
}
