package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// PriceBar is one daily OHLCV bar. There is exactly one bar per
// (symbol, date); a later fetch for the same key overwrites the bar.
type PriceBar struct {
	Date       time.Time       `json:"date" db:"date"`
	Symbol     string          `json:"symbol" db:"symbol"`
	Open       decimal.Decimal `json:"open" db:"open"`
	High       decimal.Decimal `json:"high" db:"high"`
	Low        decimal.Decimal `json:"low" db:"low"`
	Close      decimal.Decimal `json:"close" db:"close"`
	Volume     decimal.Decimal `json:"volume" db:"volume"`
	Indicators *IndicatorSet   `json:"indicators,omitempty" db:"-"`
}

// IndicatorSet carries the technical indicators computed for one bar
// from its trailing window. An indicator is absent (missing map key or
// nil pointer) until enough trailing bars exist for its period.
type IndicatorSet struct {
	SMA            map[int]decimal.Decimal  `json:"sma,omitempty"`
	EMA            map[int]decimal.Decimal  `json:"ema,omitempty"`
	RSI            map[int]decimal.Decimal  `json:"rsi,omitempty"`
	BollingerBands *BollingerBandsIndicator `json:"bollinger_bands,omitempty"`
	MACD           *MACDIndicator           `json:"macd,omitempty"`
}

// BollingerBandsIndicator holds the 20-period ±2σ bands
type BollingerBandsIndicator struct {
	Upper  decimal.Decimal `json:"upper"`
	Middle decimal.Decimal `json:"middle"`
	Lower  decimal.Decimal `json:"lower"`
}

// MACDIndicator holds MACD(12,26,9) values
type MACDIndicator struct {
	MACD      decimal.Decimal `json:"macd"`
	Signal    decimal.Decimal `json:"signal"`
	Histogram decimal.Decimal `json:"histogram"`
}
