package models

import "time"

// AssetSummary is one row of the asset list. The list is always replaced
// wholesale on refetch.
type AssetSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Rank     int    `json:"rank"`
	IsNew    bool   `json:"is_new"`
	IsActive bool   `json:"is_active"`
	Type     string `json:"type"`
}

// AssetInfo is the static profile of an asset. Zero times mean the upstream
// did not report the timestamp.
type AssetInfo struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Rank              int       `json:"rank"`
	IsNew             bool      `json:"is_new"`
	IsActive          bool      `json:"is_active"`
	Type              string    `json:"type"`
	Description       string    `json:"description"`
	Message           string    `json:"message"`
	OpenSource        bool      `json:"open_source"`
	HardwareWallet    bool      `json:"hardware_wallet"`
	StartedAt         time.Time `json:"started_at"`
	FirstDataAt       time.Time `json:"first_data_at"`
	LastDataAt        time.Time `json:"last_data_at"`
	DevelopmentStatus string    `json:"development_status"`
	ProofType         string    `json:"proof_type"`
	OrgStructure      string    `json:"org_structure"`
	HashAlgorithm     string    `json:"hash_algorithm"`
}

// TopRanked returns at most n assets in list order.
func TopRanked(assets []AssetSummary, n int) []AssetSummary {
	if n < 0 {
		n = 0
	}
	if len(assets) <= n {
		return assets
	}
	return assets[:n]
}
