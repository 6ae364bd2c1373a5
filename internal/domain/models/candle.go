package models

import "time"

// Candle represents an OHLCV record, the raw input to feature
// engineering, labeling and evaluation.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether the candle carries usable price data.
func (c Candle) Valid() bool {
	return c.Symbol != "" && c.Close > 0 && c.High >= c.Low
}
