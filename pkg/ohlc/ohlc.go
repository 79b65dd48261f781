// Package ohlc turns raw historical price records into chart-ready candles.
package ohlc

import (
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits in every formatted price.
const Places = 4

// SeriesName is the label charts show for the price series.
const SeriesName = "Price"

// Transform maps each complete record to an OhlcPoint, preserving order.
// Records missing any of open, high, low or close are dropped. The result is
// never nil.
func Transform(points []models.HistoricalPricePoint) []models.OhlcPoint {
	out := make([]models.OhlcPoint, 0, len(points))
	for _, p := range points {
		if !p.Complete() {
			continue
		}
		out = append(out, models.OhlcPoint{
			Timestamp: p.TimeOpen,
			Values: [4]string{
				Format(*p.Open),
				Format(*p.High),
				Format(*p.Low),
				Format(*p.Close),
			},
		})
	}
	return out
}

// Format renders v with exactly four fractional digits, rounding half away
// from zero on the shortest decimal representation of v. So 1.23455 becomes
// "1.2346" even though its binary value sits slightly below the midpoint.
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(Places)
}

// Series is a named candle series as chart renderers consume it.
type Series struct {
	Name string             `json:"name"`
	Data []models.OhlcPoint `json:"data"`
}

// NewSeries transforms points into the "Price" series.
func NewSeries(points []models.HistoricalPricePoint) Series {
	return Series{Name: SeriesName, Data: Transform(points)}
}
