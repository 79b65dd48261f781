package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/alim08/coinwatch/pkg/market"
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/query"
	"github.com/alim08/coinwatch/pkg/theme"
)

func TestWriteList(t *testing.T) {
	var b strings.Builder
	writeList(&b, nil, query.Result[[]models.AssetSummary]{IsLoading: true})
	if !strings.Contains(b.String(), "loading") {
		t.Errorf("got %q", b.String())
	}

	b.Reset()
	all := []models.AssetSummary{{ID: "btc-bitcoin", Name: "Bitcoin", Symbol: "BTC", Rank: 1}, {ID: "eth-ethereum", Name: "Ethereum", Symbol: "ETH", Rank: 2}}
	writeList(&b, all[:1], query.Result[[]models.AssetSummary]{Data: all, HasData: true})
	out := b.String()
	if !strings.Contains(out, "assets (1 of 2)") || !strings.Contains(out, "Bitcoin") || strings.Contains(out, "Ethereum") {
		t.Errorf("got %q", out)
	}
}

func TestWriteDetail(t *testing.T) {
	r := market.DetailResult{
		HasData: true,
		Info:    models.AssetInfo{Name: "Bitcoin", Symbol: "BTC", Rank: 1},
		Ticker:  models.AssetTicker{Quote: models.Quote{Price: 50000.123, PercentChange24h: -1.5}},
		Err:     errors.New("bad gateway"),
	}
	var b strings.Builder
	writeDetail(&b, "btc-bitcoin", r)
	out := b.String()
	for _, want := range []string{"Bitcoin (BTC) #1", "$50000.123", "24h -1.50%", "stale: bad gateway"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	b.Reset()
	writeDetail(&b, "btc-bitcoin", market.DetailResult{Err: errors.New("refused")})
	if got := b.String(); got != "btc-bitcoin: error: refused\n" {
		t.Errorf("got %q", got)
	}
}

func TestWriteChart(t *testing.T) {
	var b strings.Builder
	writeChart(&b, nil)
	if b.Len() != 0 {
		t.Errorf("empty chart should print nothing, got %q", b.String())
	}
	writeChart(&b, []models.OhlcPoint{{Timestamp: "2024-05-01T00:00:00Z", Values: [4]string{"1.0000", "2.0000", "0.5000", "1.5000"}}})
	if !strings.Contains(b.String(), "candles: 1, last 2024-05-01T00:00:00Z O 1.0000 H 2.0000 L 0.5000 C 1.5000") {
		t.Errorf("got %q", b.String())
	}
}

func TestReadCommands(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("t\nr\nt\nt\nq\nt\n")
	th := theme.NewStore()
	cache := query.New()
	defer cache.Close()

	quit := false
	readCommands(&buf, th, cache, []string{"btc-bitcoin"}, func() { quit = true })
	if !quit {
		t.Error("q should quit")
	}
	if !th.IsDark() {
		t.Error("three toggles before q should leave dark mode on")
	}
}
