package models

import (
	"encoding/json"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestHistoricalPricePoint_Complete(t *testing.T) {
	full := HistoricalPricePoint{Open: f(1), High: f(2), Low: f(0.5), Close: f(1.5)}
	if !full.Complete() {
		t.Error("expected complete point")
	}
	missing := full
	missing.Low = nil
	if missing.Complete() {
		t.Error("expected incomplete point when low is nil")
	}
}

func TestQuote_PriceString(t *testing.T) {
	cases := map[float64]string{
		50000.123:  "50000.123",
		50100.4567: "50100.457",
		0.0005:     "0.001",
		42:         "42.000",
	}
	for in, want := range cases {
		if got := (Quote{Price: in}).PriceString(); got != want {
			t.Errorf("PriceString(%v) = %q; want %q", in, got, want)
		}
	}
}

func TestTopRanked(t *testing.T) {
	assets := []AssetSummary{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := TopRanked(assets, 2); len(got) != 2 || got[1].ID != "b" {
		t.Errorf("TopRanked(2) = %v", got)
	}
	if got := TopRanked(assets, 10); len(got) != 3 {
		t.Errorf("TopRanked(10) len = %d; want 3", len(got))
	}
	if got := TopRanked(assets, -1); len(got) != 0 {
		t.Errorf("TopRanked(-1) len = %d; want 0", len(got))
	}
}

func TestOhlcPoint_JSONShape(t *testing.T) {
	p := OhlcPoint{Timestamp: "t1", Values: [4]string{"1.0000", "2.0000", "0.5000", "1.5000"}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"x":"t1","y":["1.0000","2.0000","0.5000","1.5000"]}`
	if string(data) != want {
		t.Errorf("json = %s; want %s", data, want)
	}
}

func TestAssetTicker_ToJSON(t *testing.T) {
	s, err := AssetTicker{ID: "btc-bitcoin", Quote: Quote{Price: 1}}.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var back AssetTicker
	if err := json.Unmarshal([]byte(s), &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != "btc-bitcoin" || back.Quote.Price != 1 {
		t.Errorf("round trip = %+v", back)
	}
}
