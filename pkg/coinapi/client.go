// Package coinapi is the typed client for the upstream market data API.
//
// Every operation returns either a validated payload or fails with a
// *NetworkError or *DecodeError. The client never retries; retry policy
// belongs to the caller.
package coinapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/metrics"
	"github.com/alim08/coinwatch/pkg/models"
	"github.com/alim08/coinwatch/pkg/validation"
	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultHistoryWindow = 14 * 24 * time.Hour
	userAgent            = "coinwatch/1.0"

	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// Client issues read-only requests against the market data API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	historyWindow time.Duration
	now           func() time.Time
	log           *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. The caller's client is used
// as given; WithTimeout does not apply to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHistoryWindow sets how far back GetAssetHistory reaches.
func WithHistoryWindow(d time.Duration) Option {
	return func(c *Client) { c.historyWindow = d }
}

// WithClock overrides time.Now, used to compute the history window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a Client rooted at baseURL, e.g.
// "https://api.coinpaprika.com/v1".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		timeout:       DefaultTimeout,
		historyWindow: DefaultHistoryWindow,
		now:           time.Now,
		log:           logger.Named("coinapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}
	return c
}

// ListAssets fetches the full asset list.
func (c *Client) ListAssets(ctx context.Context) ([]models.AssetSummary, error) {
	const op = "list_assets"
	u := c.baseURL + "/coins"

	var raw []summaryWire
	if err := c.getJSON(ctx, op, u, &raw); err != nil {
		return nil, err
	}
	out := make([]models.AssetSummary, 0, len(raw))
	for i, w := range raw {
		if errs := validation.ValidateStruct(w); len(errs) > 0 {
			return nil, c.decodeErr(op, u, fmt.Errorf("item %d: %w", i, errs))
		}
		out = append(out, w.toModel())
	}
	return out, nil
}

// GetAssetInfo fetches the static profile of one asset.
func (c *Client) GetAssetInfo(ctx context.Context, id string) (models.AssetInfo, error) {
	const op = "asset_info"
	u, err := c.assetURL(op, "/coins/%s", id)
	if err != nil {
		return models.AssetInfo{}, err
	}

	var raw infoWire
	if err := c.getJSON(ctx, op, u, &raw); err != nil {
		return models.AssetInfo{}, err
	}
	if errs := validation.ValidateStruct(raw); len(errs) > 0 {
		return models.AssetInfo{}, c.decodeErr(op, u, errs)
	}
	return raw.toModel(), nil
}

// GetAssetTicker fetches the live USD ticker of one asset.
func (c *Client) GetAssetTicker(ctx context.Context, id string) (models.AssetTicker, error) {
	const op = "asset_ticker"
	u, err := c.assetURL(op, "/tickers/%s", id)
	if err != nil {
		return models.AssetTicker{}, err
	}

	var raw tickerWire
	if err := c.getJSON(ctx, op, u, &raw); err != nil {
		return models.AssetTicker{}, err
	}
	if errs := validation.ValidateStruct(raw); len(errs) > 0 {
		return models.AssetTicker{}, c.decodeErr(op, u, errs)
	}
	return raw.toModel(), nil
}

// GetAssetHistory fetches the daily OHLCV series for the configured window
// ending now. The series is returned in upstream order.
func (c *Client) GetAssetHistory(ctx context.Context, id string) ([]models.HistoricalPricePoint, error) {
	const op = "asset_history"
	u, err := c.assetURL(op, "/coins/%s/ohlcv/historical", id)
	if err != nil {
		return nil, err
	}
	end := c.now().UTC()
	start := end.Add(-c.historyWindow)
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))
	u += "?" + q.Encode()

	var raw []historyWire
	if err := c.getJSON(ctx, op, u, &raw); err != nil {
		return nil, err
	}
	out := make([]models.HistoricalPricePoint, 0, len(raw))
	for i, w := range raw {
		if errs := validation.ValidateStruct(w); len(errs) > 0 {
			return nil, c.decodeErr(op, u, fmt.Errorf("item %d: %w", i, errs))
		}
		out = append(out, w.toModel())
	}
	return out, nil
}

func (c *Client) assetURL(op, pathFmt, id string) (string, error) {
	u := c.baseURL + fmt.Sprintf(pathFmt, url.PathEscape(id))
	if !validation.IsAssetID(id) {
		metrics.APIErrors.WithLabelValues(op, "network").Inc()
		return "", &NetworkError{Op: op, URL: u, Err: fmt.Errorf("%w: %q", ErrInvalidAssetID, id)}
	}
	return u, nil
}

// getJSON performs the GET and decodes the body into dst. Transport and
// status failures become NetworkError, body/shape failures DecodeError.
func (c *Client) getJSON(ctx context.Context, op, u string, dst interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(op, metrics.Status(err)).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return c.networkErr(op, u, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkErr(op, u, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.networkErr(op, u, resp.StatusCode, fmt.Errorf("%s - %s", resp.Status, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.networkErr(op, u, resp.StatusCode, fmt.Errorf("body read error: %w", err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return c.decodeErr(op, u, err)
	}

	c.log.Debug("fetched", zap.String("op", op), zap.String("url", u), zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Client) networkErr(op, u string, status int, err error) error {
	metrics.APIErrors.WithLabelValues(op, "network").Inc()
	c.log.Warn("request failed", zap.String("op", op), zap.String("url", u), zap.Int("status", status), zap.Error(err))
	return &NetworkError{Op: op, URL: u, StatusCode: status, Err: err}
}

func (c *Client) decodeErr(op, u string, err error) error {
	metrics.APIErrors.WithLabelValues(op, "decode").Inc()
	c.log.Warn("unexpected payload", zap.String("op", op), zap.String("url", u), zap.Error(err))
	return &DecodeError{Op: op, URL: u, Err: err}
}
