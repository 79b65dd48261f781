package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alim08/coinwatch/pkg/market"
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/query"
	"github.com/alim08/coinwatch/pkg/theme"
)

type view struct {
	out   io.Writer
	theme *theme.Store
}

func (v *view) render(top []models.AssetSummary, list query.Result[[]models.AssetSummary], assets []string, details map[string]*market.Detail, charts map[string]*market.ChartQuery) {
	var b strings.Builder
	p := v.theme.Palette()
	fmt.Fprintf(&b, "== coinwatch [%s bg=%s accent=%s] ==\n", v.theme.ChartMode(), p.BgColor, p.AccentColor)

	writeList(&b, top, list)
	for _, id := range assets {
		writeDetail(&b, id, details[id].Result())
		writeChart(&b, charts[id].Points())
	}
	fmt.Fprint(v.out, b.String())
}

func writeList(b *strings.Builder, top []models.AssetSummary, r query.Result[[]models.AssetSummary]) {
	switch {
	case r.IsLoading:
		b.WriteString("assets: loading...\n")
		return
	case !r.HasData && r.Err != nil:
		fmt.Fprintf(b, "assets: error: %v\n", r.Err)
		return
	}
	fmt.Fprintf(b, "assets (%d of %d):\n", len(top), len(r.Data))
	for _, a := range top {
		fmt.Fprintf(b, "  %4d %-8s %s\n", a.Rank, a.Symbol, a.Name)
	}
}

func writeDetail(b *strings.Builder, id string, r market.DetailResult) {
	if r.IsLoading {
		fmt.Fprintf(b, "%s: loading...\n", id)
		return
	}
	if !r.HasData {
		fmt.Fprintf(b, "%s: error: %v\n", id, r.Err)
		return
	}
	q := r.Ticker.Quote
	fmt.Fprintf(b, "%s (%s) #%d  $%s  24h %+.2f%%  7d %+.2f%%\n",
		r.Info.Name, r.Info.Symbol, r.Info.Rank, q.PriceString(), q.PercentChange24h, q.PercentChange7d)
	if r.Err != nil {
		fmt.Fprintf(b, "  (stale: %v)\n", r.Err)
	}
}

func writeChart(b *strings.Builder, points []models.OhlcPoint) {
	if len(points) == 0 {
		return
	}
	last := points[len(points)-1]
	fmt.Fprintf(b, "  candles: %d, last %s O %s H %s L %s C %s\n",
		len(points), last.Timestamp, last.Values[0], last.Values[1], last.Values[2], last.Values[3])
}
