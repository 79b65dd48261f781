package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetTicker is the live market snapshot of an asset, quoted in USD.
type AssetTicker struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Rank              int       `json:"rank"`
	CirculatingSupply float64   `json:"circulating_supply"`
	TotalSupply       float64   `json:"total_supply"`
	MaxSupply         float64   `json:"max_supply"`
	BetaValue         float64   `json:"beta_value"`
	FirstDataAt       time.Time `json:"first_data_at"`
	LastUpdated       time.Time `json:"last_updated"`
	Quote             Quote     `json:"quote"`
}

type Quote struct {
	Price               float64   `json:"price"`
	Volume24h           float64   `json:"volume_24h"`
	Volume24hChange24h  float64   `json:"volume_24h_change_24h"`
	MarketCap           float64   `json:"market_cap"`
	MarketCapChange24h  float64   `json:"market_cap_change_24h"`
	PercentChange15m    float64   `json:"percent_change_15m"`
	PercentChange30m    float64   `json:"percent_change_30m"`
	PercentChange1h     float64   `json:"percent_change_1h"`
	PercentChange6h     float64   `json:"percent_change_6h"`
	PercentChange12h    float64   `json:"percent_change_12h"`
	PercentChange24h    float64   `json:"percent_change_24h"`
	PercentChange7d     float64   `json:"percent_change_7d"`
	PercentChange30d    float64   `json:"percent_change_30d"`
	PercentChange1y     float64   `json:"percent_change_1y"`
	ATHPrice            float64   `json:"ath_price"`
	ATHDate             time.Time `json:"ath_date"`
	PercentFromPriceATH float64   `json:"percent_from_price_ath"`
}

// PriceString renders the price the way the overview shows it, with three
// fractional digits.
func (q Quote) PriceString() string {
	return decimal.NewFromFloat(q.Price).StringFixed(3)
}

// ToJSON converts to JSON string for pub/sub
func (t AssetTicker) ToJSON() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %w", err)
	}
	return string(data), nil
}
