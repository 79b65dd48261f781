// Package market binds the upstream client to the query cache with the
// refresh cadence each view needs. Views hold the returned queries and read
// Result; closing a query releases its subscription.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/alim08/coinwatch/pkg/coinapi"
	"github.com/alim08/coinwatch/pkg/config"
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/ohlc"
	"github.com/alim08/coinwatch/pkg/query"
	"github.com/alim08/coinwatch/pkg/theme"
)

// Resource kinds used as the first half of every cache key.
const (
	KindAssets  = "coins"
	KindInfo    = "info"
	KindTicker  = "tickers"
	KindHistory = "ohlcv"
)

// Source is the upstream the service reads from. *coinapi.Client implements it.
type Source interface {
	ListAssets(ctx context.Context) ([]models.AssetSummary, error)
	GetAssetInfo(ctx context.Context, id string) (models.AssetInfo, error)
	GetAssetTicker(ctx context.Context, id string) (models.AssetTicker, error)
	GetAssetHistory(ctx context.Context, id string) ([]models.HistoricalPricePoint, error)
}

type Options struct {
	TickerInterval  time.Duration
	HistoryInterval time.Duration
	StaleTime       time.Duration
	CacheTime       time.Duration
	Retries         uint64
	ListLimit       int
}

// OptionsFromConfig copies the refresh settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TickerInterval:  cfg.TickerInterval,
		HistoryInterval: cfg.HistoryInterval,
		StaleTime:       cfg.StaleTime,
		CacheTime:       cfg.CacheTime,
		Retries:         cfg.Retries,
		ListLimit:       cfg.ListLimit,
	}
}

type Service struct {
	src   Source
	cache *query.Cache
	theme *theme.Store
	opts  Options
}

func NewService(src Source, cache *query.Cache, th *theme.Store, opts Options) *Service {
	if th == nil {
		th = theme.NewStore()
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = config.DefaultListLimit
	}
	return &Service{src: src, cache: cache, theme: th, opts: opts}
}

func (s *Service) Theme() *theme.Store { return s.theme }

// Assets subscribes to the asset list. It is fetched once per subscription.
func (s *Service) Assets() *query.Query[[]models.AssetSummary] {
	return query.Subscribe(s.cache, query.Key{Kind: KindAssets}, s.src.ListAssets, s.queryOptions(0))
}

// TopAssets trims a list result to the configured limit.
func (s *Service) TopAssets(r query.Result[[]models.AssetSummary]) []models.AssetSummary {
	return models.TopRanked(r.Data, s.opts.ListLimit)
}

// Info subscribes to the static profile of id. It is not polled.
func (s *Service) Info(id string) *query.Query[models.AssetInfo] {
	fetch := func(ctx context.Context) (models.AssetInfo, error) { return s.src.GetAssetInfo(ctx, id) }
	return query.Subscribe(s.cache, query.Key{Kind: KindInfo, AssetID: id}, fetch, s.queryOptions(0))
}

// Ticker subscribes to the live ticker of id, refetched every TickerInterval.
func (s *Service) Ticker(id string) *query.Query[models.AssetTicker] {
	fetch := func(ctx context.Context) (models.AssetTicker, error) { return s.src.GetAssetTicker(ctx, id) }
	return query.Subscribe(s.cache, query.Key{Kind: KindTicker, AssetID: id}, fetch, s.queryOptions(s.opts.TickerInterval))
}

// Chart subscribes to the price history of id, refetched every
// HistoryInterval.
func (s *Service) Chart(id string) *ChartQuery {
	fetch := func(ctx context.Context) ([]models.HistoricalPricePoint, error) { return s.src.GetAssetHistory(ctx, id) }
	q := query.Subscribe(s.cache, query.Key{Kind: KindHistory, AssetID: id}, fetch, s.queryOptions(s.opts.HistoryInterval))
	return &ChartQuery{Query: q, theme: s.theme}
}

// Detail subscribes to both the profile and the ticker of id.
func (s *Service) Detail(id string) *Detail {
	return &Detail{info: s.Info(id), ticker: s.Ticker(id)}
}

// OnTicker calls fn with every successfully refreshed ticker. The returned
// func stops delivery.
func (s *Service) OnTicker(fn func(models.AssetTicker)) (remove func()) {
	return s.cache.Observe(func(snap query.Snapshot) {
		if snap.Key.Kind != KindTicker || snap.Err != nil {
			return
		}
		if t, ok := snap.Data.(models.AssetTicker); ok {
			fn(t)
		}
	})
}

func (s *Service) queryOptions(interval time.Duration) query.Options {
	return query.Options{
		RefetchInterval: interval,
		StaleTime:       s.opts.StaleTime,
		CacheTime:       s.opts.CacheTime,
		Retries:         s.opts.Retries,
		ShouldRetry:     Retryable,
	}
}

// Retryable reports whether err is worth another attempt. Malformed payloads
// and malformed ids will not fix themselves.
func Retryable(err error) bool {
	if errors.Is(err, coinapi.ErrInvalidAssetID) {
		return false
	}
	return !coinapi.IsDecodeError(err)
}

// ChartQuery is the history subscription plus its derived candles.
type ChartQuery struct {
	*query.Query[[]models.HistoricalPricePoint]
	theme *theme.Store
}

// Points transforms the latest history into candles. It is empty until the
// first successful fetch.
func (c *ChartQuery) Points() []models.OhlcPoint {
	return ohlc.Transform(c.Result().Data)
}

// Series is Points wrapped as the named price series.
func (c *ChartQuery) Series() ohlc.Series {
	return ohlc.NewSeries(c.Result().Data)
}

// Mode is the chart color mode that follows the shared theme.
func (c *ChartQuery) Mode() string {
	return c.theme.ChartMode()
}

// Detail combines the profile and ticker subscriptions of one asset.
type Detail struct {
	info   *query.Query[models.AssetInfo]
	ticker *query.Query[models.AssetTicker]
}

type DetailResult struct {
	IsLoading bool
	Info      models.AssetInfo
	Ticker    models.AssetTicker
	HasData   bool
	Err       error
}

// Result is loading while either half is loading, and carries the first
// error of the two.
func (d *Detail) Result() DetailResult {
	info, tk := d.info.Result(), d.ticker.Result()
	err := info.Err
	if err == nil {
		err = tk.Err
	}
	return DetailResult{
		IsLoading: info.IsLoading || tk.IsLoading,
		Info:      info.Data,
		Ticker:    tk.Data,
		HasData:   info.HasData && tk.HasData,
		Err:       err,
	}
}

// Changes returns the notification channels of both halves.
func (d *Detail) Changes() (info, ticker <-chan struct{}) {
	return d.info.Changes(), d.ticker.Changes()
}

func (d *Detail) Close() {
	d.info.Close()
	d.ticker.Close()
}
