package models

// HistoricalPricePoint is one raw candle from the history endpoint. The price
// fields are pointers because upstream occasionally omits or nulls them.
type HistoricalPricePoint struct {
	TimeOpen  string   `json:"time_open"`
	TimeClose string   `json:"time_close"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    float64  `json:"volume"`
	MarketCap float64  `json:"market_cap"`
}

// Complete reports whether all four prices are present.
func (p HistoricalPricePoint) Complete() bool {
	return p.Open != nil && p.High != nil && p.Low != nil && p.Close != nil
}

// OhlcPoint is a chart-ready candle. Values holds open, high, low and close
// as fixed-point strings. The x/y names are what candlestick renderers expect.
type OhlcPoint struct {
	Timestamp string    `json:"x"`
	Values    [4]string `json:"y"`
}
