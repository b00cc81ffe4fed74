package indicators

import (
	"fmt"
	"math"
	"strings"

	"github.com/cinar/indicator"
	"github.com/shopspring/decimal"

	"github.com/selivandex/market-pulse/pkg/models"
)

const (
	rsiPeriod        = 14
	bollingerPeriod  = 20
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// IndicatorError reports invalid input bars. The caller gets its input
// back unchanged, never a partially computed result.
type IndicatorError struct {
	MissingFields []string
}

func (e *IndicatorError) Error() string {
	return fmt.Sprintf("invalid price bars: missing or invalid fields: %s", strings.Join(e.MissingFields, ", "))
}

// Engine computes technical indicators over ordered daily bars
type Engine struct {
	smaPeriods []int
	emaPeriods []int
}

// NewEngine creates new indicator engine. Periods default to SMA 20/50
// and EMA 12/26 when empty.
func NewEngine(smaPeriods, emaPeriods []int) *Engine {
	if len(smaPeriods) == 0 {
		smaPeriods = []int{20, 50}
	}
	if len(emaPeriods) == 0 {
		emaPeriods = []int{12, 26}
	}
	return &Engine{smaPeriods: smaPeriods, emaPeriods: emaPeriods}
}

// ComputeIndicators attaches an IndicatorSet to every bar for which it
// is computable: each value uses only bars at or before its own bar,
// and stays absent until enough trailing bars exist for its period.
// Bars with missing fields fail with IndicatorError and the input is
// returned unchanged.
func (e *Engine) ComputeIndicators(bars []models.PriceBar) ([]models.PriceBar, error) {
	if len(bars) == 0 {
		return bars, nil
	}

	if missing := validate(bars); len(missing) > 0 {
		return bars, &IndicatorError{MissingFields: missing}
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i], _ = bar.Close.Float64()
	}

	result := make([]models.PriceBar, len(bars))
	copy(result, bars)
	for i := range result {
		result[i].Indicators = &models.IndicatorSet{}
	}

	e.attachSMA(result, closes)
	e.attachEMA(result, closes)
	attachRSI(result, closes)
	attachBollinger(result, closes)
	attachMACD(result, closes)

	// Bars before every warmup carry no indicators at all
	for i := range result {
		set := result[i].Indicators
		if len(set.SMA) == 0 && len(set.EMA) == 0 && len(set.RSI) == 0 && set.BollingerBands == nil && set.MACD == nil {
			result[i].Indicators = nil
		}
	}

	return result, nil
}

func (e *Engine) attachSMA(bars []models.PriceBar, closes []float64) {
	for _, period := range e.smaPeriods {
		sma := indicator.Sma(period, closes)
		for i := period - 1; i < len(bars); i++ {
			if bars[i].Indicators.SMA == nil {
				bars[i].Indicators.SMA = make(map[int]decimal.Decimal)
			}
			bars[i].Indicators.SMA[period] = models.NewDecimal(sma[i])
		}
	}
}

func (e *Engine) attachEMA(bars []models.PriceBar, closes []float64) {
	for _, period := range e.emaPeriods {
		ema := emaSeries(period, closes)
		for i := period - 1; i < len(bars); i++ {
			if bars[i].Indicators.EMA == nil {
				bars[i].Indicators.EMA = make(map[int]decimal.Decimal)
			}
			bars[i].Indicators.EMA[period] = models.NewDecimal(ema[i])
		}
	}
}

func attachRSI(bars []models.PriceBar, closes []float64) {
	_, rsi := indicator.Rsi(closes)
	// The first RSI value needs period+1 closes (period diffs)
	for i := rsiPeriod; i < len(bars); i++ {
		value := rsi[i]
		// A flat window has zero average loss; by convention RSI is 100
		if math.IsNaN(value) {
			value = 100
		}
		if value > 100 {
			value = 100
		} else if value < 0 {
			value = 0
		}

		if bars[i].Indicators.RSI == nil {
			bars[i].Indicators.RSI = make(map[int]decimal.Decimal)
		}
		bars[i].Indicators.RSI[rsiPeriod] = models.NewDecimal(value)
	}
}

func attachBollinger(bars []models.PriceBar, closes []float64) {
	middle, upper, lower := indicator.BollingerBands(closes)
	for i := bollingerPeriod - 1; i < len(bars); i++ {
		bars[i].Indicators.BollingerBands = &models.BollingerBandsIndicator{
			Upper:  models.NewDecimal(upper[i]),
			Middle: models.NewDecimal(middle[i]),
			Lower:  models.NewDecimal(lower[i]),
		}
	}
}

func attachMACD(bars []models.PriceBar, closes []float64) {
	// Not even the slow EMA warms up on a shorter series
	if len(closes) < macdSlowPeriod {
		return
	}

	ema12 := emaSeries(macdFastPeriod, closes)
	ema26 := emaSeries(macdSlowPeriod, closes)

	// MACD exists once the slow EMA does
	macd := make([]float64, len(closes))
	for i := macdSlowPeriod - 1; i < len(closes); i++ {
		macd[i] = ema12[i] - ema26[i]
	}

	// Signal is an EMA of the MACD series, warmed up over its first
	// signalPeriod values
	macdValues := macd[macdSlowPeriod-1:]
	signal := emaSeries(macdSignalPeriod, macdValues)

	firstSignal := macdSlowPeriod - 1 + macdSignalPeriod - 1
	for i := firstSignal; i < len(bars); i++ {
		signalValue := signal[i-(macdSlowPeriod-1)]
		bars[i].Indicators.MACD = &models.MACDIndicator{
			MACD:      models.NewDecimal(macd[i]),
			Signal:    models.NewDecimal(signalValue),
			Histogram: models.NewDecimal(macd[i] - signalValue),
		}
	}
}

// emaSeries computes an EMA seeded with the SMA of the first period
// values at index period-1; earlier indices are meaningless and must
// not be read. The library EMA seeds from the first value alone, which
// would leak a value before the warmup completes.
func emaSeries(period int, values []float64) []float64 {
	result := make([]float64, len(values))
	if len(values) < period {
		return result
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		result[i] = values[i]*k + result[i-1]*(1-k)
	}

	return result
}

// validate checks every bar carries the OHLCV fields the math needs
func validate(bars []models.PriceBar) []string {
	missing := make(map[string]bool)

	for _, bar := range bars {
		if bar.Date.IsZero() {
			missing["date"] = true
		}
		if bar.Symbol == "" {
			missing["symbol"] = true
		}
		if bar.Open.IsNegative() {
			missing["open"] = true
		}
		if bar.High.IsNegative() {
			missing["high"] = true
		}
		if bar.Low.IsNegative() {
			missing["low"] = true
		}
		if bar.Close.IsNegative() || bar.Close.IsZero() {
			missing["close"] = true
		}
		if bar.Volume.IsNegative() {
			missing["volume"] = true
		}
	}

	fields := make([]string, 0, len(missing))
	for _, field := range []string{"symbol", "date", "open", "high", "low", "close", "volume"} {
		if missing[field] {
			fields = append(fields, field)
		}
	}
	return fields
}
