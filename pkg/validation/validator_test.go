package validation

import (
	"strings"
	"testing"
)

type sample struct {
	ID       *string `json:"id" validate:"required,assetid"`
	Rank     *int    `json:"rank" validate:"required,min=0"`
	OpenedAt *string `json:"time_open" validate:"required,rfc3339"`
	Note     string  `json:"note"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestValidateStruct(t *testing.T) {
	cases := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{
			name: "valid",
			in:   sample{ID: strPtr("btc-bitcoin"), Rank: intPtr(1), OpenedAt: strPtr("2024-01-01T00:00:00Z")},
		},
		{
			name:      "missing id",
			in:        sample{Rank: intPtr(1), OpenedAt: strPtr("2024-01-01T00:00:00Z")},
			wantField: "id",
		},
		{
			name:      "zero rank is present, bad id is not",
			in:        sample{ID: strPtr("BTC Bitcoin"), Rank: intPtr(0), OpenedAt: strPtr("2024-01-01T00:00:00Z")},
			wantField: "id",
		},
		{
			name:      "negative rank",
			in:        sample{ID: strPtr("eth-ethereum"), Rank: intPtr(-1), OpenedAt: strPtr("2024-01-01T00:00:00Z")},
			wantField: "rank",
			wantMsg:   "rank must be at least 0",
		},
		{
			name:      "bad timestamp",
			in:        sample{ID: strPtr("eth-ethereum"), Rank: intPtr(2), OpenedAt: strPtr("yesterday")},
			wantField: "time_open",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			errs := ValidateStruct(c.in)
			if c.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("errors = %v; want exactly one", errs)
			}
			if errs[0].Field != c.wantField {
				t.Errorf("Field = %q; want %q", errs[0].Field, c.wantField)
			}
			if c.wantMsg != "" && errs[0].Message != c.wantMsg {
				t.Errorf("Message = %q; want %q", errs[0].Message, c.wantMsg)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "id", Message: "id is required"},
		{Field: "rank", Message: "rank is required"},
	}
	got := errs.Error()
	if !strings.Contains(got, "id: id is required") || !strings.Contains(got, "; rank:") {
		t.Errorf("Error() = %q", got)
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}

func TestIsAssetID(t *testing.T) {
	for id, want := range map[string]bool{
		"btc-bitcoin":      true,
		"usdt-tether":      true,
		"bnb-binance-coin": true,
		"":                 false,
		"../etc/passwd":    false,
		"BTC":              false,
		"-leading":         false,
	} {
		if got := IsAssetID(id); got != want {
			t.Errorf("IsAssetID(%q) = %v; want %v", id, got, want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  Bitcoin\x00\x07 "); got != "Bitcoin" {
		t.Errorf("SanitizeString = %q; want %q", got, "Bitcoin")
	}
}
