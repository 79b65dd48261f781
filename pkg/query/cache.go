// Package query is a keyed cache of asynchronous fetches with polling.
//
// Each key has at most one entry and at most one fetch in flight. Every
// fetch is tagged with the entry that issued it and a per-entry sequence
// number; a result whose entry has since been evicted, or whose number is no
// longer the latest issued, is discarded. That covers superseded and
// abandoned fetches alike. All entry transitions happen under a single mutex, so no
// partially-updated entry is ever observable.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alim08/coinwatch/pkg/logger"
	"github.com/alim08/coinwatch/pkg/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entry struct {
	key Key

	status        Status
	data          interface{}
	hasData       bool
	err           error
	lastFetchedAt time.Time
	updatedAt     time.Time

	seq         uint64
	inFlight    bool
	cancelFetch context.CancelFunc
	fetch       FetchFunc
	opts        Options

	handles  map[*Handle]struct{}
	interval time.Duration
	stopPoll chan struct{}
	evict    *time.Timer
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:             e.key,
		Status:          e.status,
		Data:            e.data,
		HasData:         e.hasData,
		Err:             e.err,
		Fetching:        e.inFlight,
		LastFetchedAt:   e.lastFetchedAt,
		UpdatedAt:       e.updatedAt,
		RefetchInterval: e.interval,
	}
}

type observer struct {
	id uint64
	fn func(Snapshot)
}

// Cache holds query entries. The zero value is not usable; call New.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	observers []observer
	nextObs   uint64
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
	log    *zap.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides time.Now for timestamps and stale checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// New returns an empty Cache.
func New(opts ...CacheOption) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries: make(map[Key]*entry),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
		log:     logger.Named("query"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers interest in key and returns immediately with a handle
// on the current state. A fetch is issued when the key is new, or when no
// fetch is in flight and the cached result is older than opts.StaleTime.
// All subscribers of a key must agree on the payload type.
func (c *Cache) Subscribe(key Key, fetch FetchFunc, opts Options) *Handle {
	h := &Handle{
		id:      uuid.New(),
		cache:   c,
		key:     key,
		opts:    opts,
		changes: make(chan struct{}, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		h.closed = true
		close(h.changes)
		return h
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, status: StatusLoading, handles: make(map[*Handle]struct{})}
		c.entries[key] = e
	}
	if e.evict != nil {
		e.evict.Stop()
		e.evict = nil
	}
	e.fetch = fetch
	e.opts = opts
	e.handles[h] = struct{}{}
	metrics.ActiveSubscriptions.Inc()

	if !e.inFlight && c.staleLocked(e, opts.StaleTime) {
		c.startFetchLocked(e)
	}
	c.reschedulePollLocked(e)
	c.notifyLocked(e)

	c.log.Debug("subscribed",
		zap.String("key", key.String()),
		zap.String("handle", h.id.String()),
		zap.Int("subscribers", len(e.handles)),
		zap.Duration("refetch_interval", opts.RefetchInterval))
	return h
}

// Refetch issues a fetch for key unless one is already in flight or nobody
// is subscribed. It reports whether a fetch was started.
func (c *Cache) Refetch(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if c.closed || !ok || len(e.handles) == 0 || e.inFlight {
		return false
	}
	c.startFetchLocked(e)
	c.notifyLocked(e)
	return true
}

// Snapshot returns the current state of key, if an entry exists.
func (c *Cache) Snapshot(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key, Status: StatusIdle}, false
	}
	return e.snapshot(), true
}

// Len returns the number of entries, subscribed or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Observe registers fn to run after every accepted fetch settlement, outside
// the cache lock. The returned func removes the observer.
func (c *Cache) Observe(fn func(Snapshot)) (remove func()) {
	c.mu.Lock()
	c.nextObs++
	id := c.nextObs
	c.observers = append(c.observers, observer{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// Close stops all polling, cancels in-flight fetches, closes every handle
// and waits for background goroutines to return.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	for _, e := range c.entries {
		c.stopPollLocked(e)
		if e.evict != nil {
			e.evict.Stop()
			e.evict = nil
		}
		for h := range e.handles {
			h.closed = true
			close(h.changes)
			metrics.ActiveSubscriptions.Dec()
		}
		e.handles = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.log.Debug("cache closed")
}

// unsubscribe drops h. When the key loses its last subscriber the poller
// stops, the in-flight fetch is abandoned and eviction is scheduled.
func (c *Cache) unsubscribe(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.changes)
	metrics.ActiveSubscriptions.Dec()

	e, ok := c.entries[h.key]
	if !ok {
		return
	}
	delete(e.handles, h)
	if len(e.handles) > 0 {
		c.reschedulePollLocked(e)
		return
	}

	c.stopPollLocked(e)
	if e.inFlight {
		// Bumping seq makes the abandoned result stale on arrival.
		e.seq++
		e.inFlight = false
		e.cancelFetch()
		e.cancelFetch = nil
		c.log.Debug("abandoned in-flight fetch", zap.String("key", e.key.String()))
	}

	ttl := h.opts.cacheTime()
	if ttl < 0 {
		delete(c.entries, e.key)
		metrics.CacheEvictions.Inc()
		return
	}
	e.evict = time.AfterFunc(ttl, func() { c.evictIdle(e) })
}

func (c *Cache) evictIdle(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[e.key]; !ok || cur != e || len(e.handles) > 0 {
		return
	}
	delete(c.entries, e.key)
	metrics.CacheEvictions.Inc()
	c.log.Debug("evicted", zap.String("key", e.key.String()))
}

func (c *Cache) staleLocked(e *entry, staleTime time.Duration) bool {
	if staleTime <= 0 || !e.hasData || e.err != nil {
		return true
	}
	return c.now().Sub(e.updatedAt) >= staleTime
}

// startFetchLocked issues a new fetch for e. Caller holds c.mu and has
// checked that nothing is in flight.
func (c *Cache) startFetchLocked(e *entry) {
	e.seq++
	seq := e.seq
	ctx, cancel := context.WithCancel(c.ctx)
	e.inFlight = true
	e.cancelFetch = cancel

	metrics.FetchTotal.WithLabelValues(e.key.Kind).Inc()
	metrics.FetchesInFlight.Inc()

	c.wg.Add(1)
	go c.runFetch(ctx, cancel, e, seq, e.fetch, e.opts)
}

func (c *Cache) runFetch(ctx context.Context, cancel context.CancelFunc, issuer *entry, seq uint64, fetch FetchFunc, opts Options) {
	defer c.wg.Done()
	defer cancel()

	key := issuer.key
	start := time.Now()
	data, err := invoke(ctx, fetch, opts, c.log.With(zap.String("key", key.String())))
	metrics.FetchesInFlight.Dec()
	metrics.FetchLatency.WithLabelValues(key.Kind).Observe(time.Since(start).Seconds())

	c.settle(issuer, seq, data, err)
}

// settle applies a fetch result if the issuing entry is still the live one
// for its key and seq is still the latest it issued. An entry that was
// evicted and recreated restarts its numbering, so both checks are needed.
func (c *Cache) settle(issuer *entry, seq uint64, data interface{}, err error) {
	key := issuer.key
	c.mu.Lock()
	e, ok := c.entries[key]
	if c.closed || !ok || e != issuer || e.seq != seq {
		c.mu.Unlock()
		metrics.DiscardedResults.WithLabelValues(key.Kind).Inc()
		c.log.Debug("discarded stale result", zap.String("key", key.String()), zap.Uint64("seq", seq))
		return
	}

	now := c.now()
	e.inFlight = false
	e.cancelFetch = nil
	e.lastFetchedAt = now
	if err != nil {
		e.status = StatusError
		e.err = err
		metrics.FetchErrors.WithLabelValues(key.Kind).Inc()
		c.log.Warn("fetch failed",
			zap.String("key", key.String()),
			zap.Bool("has_stale_data", e.hasData),
			zap.Error(err))
	} else {
		e.status = StatusSuccess
		e.data = data
		e.hasData = true
		e.err = nil
		e.updatedAt = now
	}

	snap := e.snapshot()
	c.notifyLocked(e)
	observers := make([]observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
}

// invoke runs fetch with optional retries and turns panics into errors.
func invoke(ctx context.Context, fetch FetchFunc, opts Options, log *zap.Logger) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("fetch panic recovered", zap.Any("panic", r))
			data, err = nil, fmt.Errorf("query: fetch panicked: %v", r)
		}
	}()

	if opts.Retries == 0 {
		return fetch(ctx)
	}

	bo := backoff.NewExponentialBackOff()
	if opts.RetryDelay > 0 {
		bo.InitialInterval = opts.RetryDelay
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, opts.Retries), ctx)

	op := func() error {
		v, ferr := fetch(ctx)
		if ferr == nil {
			data = v
			return nil
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(ferr) {
			return backoff.Permanent(ferr)
		}
		return ferr
	}
	notify := func(err error, wait time.Duration) {
		log.Info("retrying fetch", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return data, nil
}

// reschedulePollLocked runs one poller per key at the smallest interval any
// current subscriber asked for, or none.
func (c *Cache) reschedulePollLocked(e *entry) {
	var interval time.Duration
	for h := range e.handles {
		iv := h.opts.RefetchInterval
		if iv > 0 && (interval == 0 || iv < interval) {
			interval = iv
		}
	}
	if interval == e.interval && (interval == 0 || e.stopPoll != nil) {
		return
	}

	c.stopPollLocked(e)
	if interval == 0 {
		return
	}
	stop := make(chan struct{})
	e.stopPoll = stop
	e.interval = interval

	c.wg.Add(1)
	go c.poll(e.key, interval, stop)
}

func (c *Cache) stopPollLocked(e *entry) {
	if e.stopPoll != nil {
		close(e.stopPoll)
		e.stopPoll = nil
	}
	e.interval = 0
}

func (c *Cache) poll(key Key, interval time.Duration, stop chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.tick(key, stop)
		}
	}
}

func (c *Cache) tick(key Key, stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if c.closed || !ok || e.stopPoll != stop {
		return
	}
	if e.inFlight {
		metrics.SkippedTicks.WithLabelValues(key.Kind).Inc()
		c.log.Debug("tick skipped, fetch in flight", zap.String("key", key.String()))
		return
	}
	c.startFetchLocked(e)
	c.notifyLocked(e)
}

// notifyLocked wakes every handle of e without blocking.
func (c *Cache) notifyLocked(e *entry) {
	for h := range e.handles {
		select {
		case h.changes <- struct{}{}:
		default:
		}
	}
}
