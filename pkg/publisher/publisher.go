// Package publisher mirrors refreshed tickers to Redis so other processes
// can follow the same prices: the latest value of each asset in a hash and
// every refresh on a pub/sub channel.
package publisher

import (
	"context"
	"strconv"
	"time"

	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/metrics"
	"github.com/alim08/coinwatch/pkg/models"
	"go.uber.org/zap"
)

const (
	DefaultBuffer = 64
	latestPrefix  = "coins:latest:"
)

// Publisher queues tickers and writes them from a single goroutine. The
// queue never blocks the caller: when it is full the ticker is dropped.
type Publisher struct {
	client  *Client
	channel string
	queue   chan models.AssetTicker
	log     *zap.Logger
}

func NewPublisher(client *Client, channel string, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Publisher{
		client:  client,
		channel: channel,
		queue:   make(chan models.AssetTicker, buffer),
		log:     logger.Named("publisher"),
	}
}

// Enqueue schedules t for publishing and reports whether it was accepted.
func (p *Publisher) Enqueue(t models.AssetTicker) bool {
	select {
	case p.queue <- t:
		return true
	default:
		metrics.PublishDropped.Inc()
		p.log.Debug("queue full, ticker dropped", zap.String("asset", t.ID))
		return false
	}
}

// Run publishes queued tickers until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	p.log.Info("publisher started", zap.String("channel", p.channel))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("publisher stopped")
			return
		case t := <-p.queue:
			if err := p.Publish(ctx, t); err != nil {
				p.log.Warn("publish failed", zap.String("asset", t.ID), zap.Error(err))
			}
		}
	}
}

// Publish updates coins:latest:<id> and sends the ticker JSON on the channel.
func (p *Publisher) Publish(ctx context.Context, t models.AssetTicker) error {
	payload, err := t.ToJSON()
	if err != nil {
		return err
	}

	if err := p.client.SetLatest(ctx, latestPrefix+t.ID,
		"price", strconv.FormatFloat(t.Quote.Price, 'f', -1, 64),
		"last_updated", t.LastUpdated.UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload)
}
