package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alim08/coinwatch/pkg/coinapi"
	"github.com/alim08/coinwatch/pkg/config"
	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/market"
	"github.com/alim08/coinwatch/pkg/metrics"
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/publisher"
	"github.com/alim08/coinwatch/pkg/query"
	"github.com/alim08/coinwatch/pkg/theme"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultAsset = "btc-bitcoin"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("config error: " + err.Error())
	}

	// 2. Init logger
	if err := logger.Init(); err != nil {
		panic("logger init: " + err.Error())
	}
	defer logger.Log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Wire client, cache and service
	client := coinapi.NewClient(cfg.APIBaseURL,
		coinapi.WithTimeout(cfg.HTTPTimeout),
		coinapi.WithHistoryWindow(cfg.HistoryWindow))
	cache := query.New()
	defer cache.Close()
	svc := market.NewService(client, cache, theme.NewStore(), market.OptionsFromConfig(cfg))

	// 4. Optional metrics endpoint
	if cfg.MetricsPort > 0 {
		srv := startMetricsServer(cfg.MetricsPort)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// 5. Optional Redis fan-out of refreshed tickers
	if cfg.RedisURL != "" {
		stop, err := startPublisher(ctx, cfg, svc)
		if err != nil {
			logger.Log.Error("publisher disabled", zap.Error(err))
		} else {
			defer stop()
		}
	}

	assets := cfg.Assets
	if len(assets) == 0 {
		assets = []string{defaultAsset}
	}

	// 6. Run until q or a signal
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Log.Info("shutdown signal received, exiting")
		cancel()
	}()

	run(ctx, svc, cache, assets, os.Stdin, os.Stdout)
}

// run subscribes the views and redraws whenever any of them changes. Input
// lines: "t" toggles the theme, "r" refetches everything, "q" quits.
func run(ctx context.Context, svc *market.Service, cache *query.Cache, assets []string, in io.Reader, out io.Writer) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	list := svc.Assets()
	defer list.Close()

	details := make(map[string]*market.Detail, len(assets))
	charts := make(map[string]*market.ChartQuery, len(assets))
	for _, id := range assets {
		details[id] = svc.Detail(id)
		charts[id] = svc.Chart(id)
		defer details[id].Close()
		defer charts[id].Close()
	}

	redraw := make(chan struct{}, 1)
	wake := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	forward := func(ch <-chan struct{}) {
		for range ch {
			wake()
		}
	}
	go forward(list.Changes())
	for _, id := range assets {
		info, tk := details[id].Changes()
		go forward(info)
		go forward(tk)
		go forward(charts[id].Changes())
	}
	unsubscribe := svc.Theme().Subscribe(func(bool) { wake() })
	defer unsubscribe()

	go readCommands(in, svc.Theme(), cache, assets, cancel)

	v := &view{out: out, theme: svc.Theme()}
	for {
		select {
		case <-ctx.Done():
			return
		case <-redraw:
			r := list.Result()
			v.render(svc.TopAssets(r), r, assets, details, charts)
		}
	}
}

func readCommands(in io.Reader, th *theme.Store, cache *query.Cache, assets []string, quit context.CancelFunc) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "t":
			th.Toggle()
		case "r":
			cache.Refetch(query.Key{Kind: market.KindAssets})
			for _, id := range assets {
				for _, kind := range []string{market.KindInfo, market.KindTicker, market.KindHistory} {
					cache.Refetch(query.Key{Kind: kind, AssetID: id})
				}
			}
		case "q":
			quit()
			return
		}
	}
}

func startPublisher(ctx context.Context, cfg *config.Config, svc *market.Service) (stop func(), err error) {
	rdb, err := publisher.New(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	pingCtx, done := context.WithTimeout(ctx, 2*time.Second)
	defer done()
	if err := rdb.Ping(pingCtx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	pub := publisher.NewPublisher(rdb, cfg.TickerChannel, publisher.DefaultBuffer)
	go pub.Run(ctx)
	remove := svc.OnTicker(func(t models.AssetTicker) { pub.Enqueue(t) })
	return func() {
		remove()
		rdb.Close()
	}, nil
}

func startMetricsServer(port int) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Log.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
