package coinapi

import (
	"time"

	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/validation"
)

// Wire types mirror the upstream JSON. Fields the core relies on are
// pointers tagged required so that absence is detectable; everything else
// decodes into plain values and defaults to zero.

type summaryWire struct {
	ID       *string `json:"id" validate:"required"`
	Name     *string `json:"name" validate:"required"`
	Symbol   *string `json:"symbol" validate:"required"`
	Rank     *int    `json:"rank" validate:"required,min=0"`
	IsNew    *bool   `json:"is_new" validate:"required"`
	IsActive *bool   `json:"is_active" validate:"required"`
	Type     *string `json:"type" validate:"required"`
}

func (w summaryWire) toModel() models.AssetSummary {
	return models.AssetSummary{
		ID:       *w.ID,
		Name:     validation.SanitizeString(*w.Name),
		Symbol:   validation.SanitizeString(*w.Symbol),
		Rank:     *w.Rank,
		IsNew:    *w.IsNew,
		IsActive: *w.IsActive,
		Type:     *w.Type,
	}
}

type infoWire struct {
	summaryWire
	Description       string `json:"description"`
	Message           string `json:"message"`
	OpenSource        bool   `json:"open_source"`
	HardwareWallet    bool   `json:"hardware_wallet"`
	StartedAt         string `json:"started_at" validate:"rfc3339"`
	FirstDataAt       string `json:"first_data_at" validate:"rfc3339"`
	LastDataAt        string `json:"last_data_at" validate:"rfc3339"`
	DevelopmentStatus string `json:"development_status"`
	ProofType         string `json:"proof_type"`
	OrgStructure      string `json:"org_structure"`
	HashAlgorithm     string `json:"hash_algorithm"`
}

func (w infoWire) toModel() models.AssetInfo {
	s := w.summaryWire.toModel()
	return models.AssetInfo{
		ID:                s.ID,
		Name:              s.Name,
		Symbol:            s.Symbol,
		Rank:              s.Rank,
		IsNew:             s.IsNew,
		IsActive:          s.IsActive,
		Type:              s.Type,
		Description:       validation.SanitizeString(w.Description),
		Message:           validation.SanitizeString(w.Message),
		OpenSource:        w.OpenSource,
		HardwareWallet:    w.HardwareWallet,
		StartedAt:         parseTime(w.StartedAt),
		FirstDataAt:       parseTime(w.FirstDataAt),
		LastDataAt:        parseTime(w.LastDataAt),
		DevelopmentStatus: w.DevelopmentStatus,
		ProofType:         w.ProofType,
		OrgStructure:      w.OrgStructure,
		HashAlgorithm:     w.HashAlgorithm,
	}
}

type tickerWire struct {
	ID                *string `json:"id" validate:"required"`
	Name              *string `json:"name" validate:"required"`
	Symbol            *string `json:"symbol" validate:"required"`
	Rank              *int    `json:"rank" validate:"required,min=0"`
	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       float64 `json:"total_supply"`
	MaxSupply         float64 `json:"max_supply"`
	BetaValue         float64 `json:"beta_value"`
	FirstDataAt       string  `json:"first_data_at" validate:"rfc3339"`
	LastUpdated       string  `json:"last_updated" validate:"rfc3339"`
	Quotes            *struct {
		USD *quoteWire `json:"USD" validate:"required"`
	} `json:"quotes" validate:"required"`
}

type quoteWire struct {
	Price               *float64 `json:"price" validate:"required"`
	Volume24h           float64  `json:"volume_24h"`
	Volume24hChange24h  float64  `json:"volume_24h_change_24h"`
	MarketCap           float64  `json:"market_cap"`
	MarketCapChange24h  float64  `json:"market_cap_change_24h"`
	PercentChange15m    float64  `json:"percent_change_15m"`
	PercentChange30m    float64  `json:"percent_change_30m"`
	PercentChange1h     float64  `json:"percent_change_1h"`
	PercentChange6h     float64  `json:"percent_change_6h"`
	PercentChange12h    float64  `json:"percent_change_12h"`
	PercentChange24h    float64  `json:"percent_change_24h"`
	PercentChange7d     float64  `json:"percent_change_7d"`
	PercentChange30d    float64  `json:"percent_change_30d"`
	PercentChange1y     float64  `json:"percent_change_1y"`
	ATHPrice            float64  `json:"ath_price"`
	ATHDate             string   `json:"ath_date" validate:"rfc3339"`
	PercentFromPriceATH float64  `json:"percent_from_price_ath"`
}

func (w tickerWire) toModel() models.AssetTicker {
	q := w.Quotes.USD
	return models.AssetTicker{
		ID:                *w.ID,
		Name:              validation.SanitizeString(*w.Name),
		Symbol:            validation.SanitizeString(*w.Symbol),
		Rank:              *w.Rank,
		CirculatingSupply: w.CirculatingSupply,
		TotalSupply:       w.TotalSupply,
		MaxSupply:         w.MaxSupply,
		BetaValue:         w.BetaValue,
		FirstDataAt:       parseTime(w.FirstDataAt),
		LastUpdated:       parseTime(w.LastUpdated),
		Quote: models.Quote{
			Price:               *q.Price,
			Volume24h:           q.Volume24h,
			Volume24hChange24h:  q.Volume24hChange24h,
			MarketCap:           q.MarketCap,
			MarketCapChange24h:  q.MarketCapChange24h,
			PercentChange15m:    q.PercentChange15m,
			PercentChange30m:    q.PercentChange30m,
			PercentChange1h:     q.PercentChange1h,
			PercentChange6h:     q.PercentChange6h,
			PercentChange12h:    q.PercentChange12h,
			PercentChange24h:    q.PercentChange24h,
			PercentChange7d:     q.PercentChange7d,
			PercentChange30d:    q.PercentChange30d,
			PercentChange1y:     q.PercentChange1y,
			ATHPrice:            q.ATHPrice,
			ATHDate:             parseTime(q.ATHDate),
			PercentFromPriceATH: q.PercentFromPriceATH,
		},
	}
}

// historyWire keeps prices optional: incomplete candles are the
// transformer's business, not a decode failure.
type historyWire struct {
	TimeOpen  *string  `json:"time_open" validate:"required"`
	TimeClose string   `json:"time_close"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    float64  `json:"volume"`
	MarketCap float64  `json:"market_cap"`
}

func (w historyWire) toModel() models.HistoricalPricePoint {
	return models.HistoricalPricePoint{
		TimeOpen:  *w.TimeOpen,
		TimeClose: w.TimeClose,
		Open:      w.Open,
		High:      w.High,
		Low:       w.Low,
		Close:     w.Close,
		Volume:    w.Volume,
		MarketCap: w.MarketCap,
	}
}

// parseTime returns the zero time for empty input. Callers validate the
// format beforehand.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
