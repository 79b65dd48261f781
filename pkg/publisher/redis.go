package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

const (
	stateClosed int32 = iota
	stateOpen
	stateHalfOpen
)

const (
	// breakerThreshold consecutive failures open the breaker.
	breakerThreshold = 5
	// breakerCooldown is how long an open breaker rejects calls before one
	// trial call is let through.
	breakerCooldown = 30 * time.Second
)

// Client is a Redis connection with metrics and a circuit breaker in front.
type Client struct {
	rdb *redis.Client
	// Circuit breaker state
	failureCount int64
	lastFailure  int64
	state        int32
}

// New parses redisURL and connects with pool settings sized for a single
// publisher.
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.PoolSize = 4
	opt.MinIdleConns = 1
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.IdleTimeout = 5 * time.Minute
	return NewWithClient(redis.NewClient(opt)), nil
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// withMetrics wraps operations with metrics collection
func (c *Client) withMetrics(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PublishDuration.WithLabelValues(operation, metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PublishErrors.WithLabelValues(operation).Inc()
	}
	return err
}

// allow reports whether a call may go through. An open breaker lets a
// single trial call through once the cooldown has passed.
func (c *Client) allow() bool {
	switch atomic.LoadInt32(&c.state) {
	case stateOpen:
		since := time.Since(time.Unix(atomic.LoadInt64(&c.lastFailure), 0))
		if since < breakerCooldown {
			return false
		}
		return atomic.CompareAndSwapInt32(&c.state, stateOpen, stateHalfOpen)
	default:
		return true
	}
}

// checkCircuitBreaker records the outcome of a call.
func (c *Client) checkCircuitBreaker(err error) {
	if err != nil {
		n := atomic.AddInt64(&c.failureCount, 1)
		atomic.StoreInt64(&c.lastFailure, time.Now().Unix())

		if atomic.CompareAndSwapInt32(&c.state, stateHalfOpen, stateOpen) ||
			(n >= breakerThreshold && atomic.CompareAndSwapInt32(&c.state, stateClosed, stateOpen)) {
			logger.Log.Warn("circuit breaker opened", zap.String("operation", "redis"), zap.Int64("failures", n))
		}
		return
	}
	atomic.StoreInt64(&c.failureCount, 0)
	if atomic.SwapInt32(&c.state, stateClosed) != stateClosed {
		logger.Log.Info("circuit breaker closed", zap.String("operation", "redis"))
	}
}

// SetLatest overwrites the latest-value hash for key with retry/backoff.
// fields alternate name and value.
func (c *Client) SetLatest(ctx context.Context, key string, fields ...interface{}) error {
	return c.withMetrics("hset", func() error {
		if !c.allow() {
			return ErrCircuitBreakerOpen
		}

		op := func() error {
			// 100ms timeout per attempt
			ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
			err := c.rdb.HSet(ctx, key, fields...).Err()
			c.checkCircuitBreaker(err)
			return err
		}
		// exponential backoff: max 3 retries
		return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
	})
}

// Publish wraps rdb.Publish with a short timeout
func (c *Client) Publish(ctx context.Context, channel string, msg interface{}) error {
	return c.withMetrics("publish", func() error {
		if !c.allow() {
			return ErrCircuitBreakerOpen
		}

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		err := c.rdb.Publish(ctx, channel, msg).Err()
		c.checkCircuitBreaker(err)
		return err
	})
}

// Ping checks connectivity once at startup.
func (c *Client) Ping(ctx context.Context) error {
	return c.withMetrics("ping", func() error {
		return c.rdb.Ping(ctx).Err()
	})
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}
