package query

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handle is one subscription to a key. Close it to unsubscribe.
type Handle struct {
	id      uuid.UUID
	cache   *Cache
	key     Key
	opts    Options
	changes chan struct{}

	// guarded by cache.mu
	closed bool
}

func (h *Handle) ID() uuid.UUID { return h.id }

func (h *Handle) Key() Key { return h.key }

// Snapshot returns the current state of the subscribed key.
func (h *Handle) Snapshot() Snapshot {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()

	if h.cache.closed {
		return Snapshot{Key: h.key, Status: StatusError, Err: ErrClosed}
	}
	e, ok := h.cache.entries[h.key]
	if !ok {
		return Snapshot{Key: h.key, Status: StatusIdle}
	}
	return e.snapshot()
}

// Changes receives a value whenever the entry may have changed. Wakeups are
// coalesced, so readers should re-read Snapshot. The channel is closed when
// the handle is closed.
func (h *Handle) Changes() <-chan struct{} { return h.changes }

// Close unsubscribes. It is safe to call more than once.
func (h *Handle) Close() { h.cache.unsubscribe(h) }

// Result is the typed view of a Snapshot.
type Result[T any] struct {
	IsLoading bool
	Data      T
	HasData   bool
	Err       error
	Fetching  bool
	UpdatedAt time.Time
}

// ResultOf converts a snapshot whose payload has type T.
func ResultOf[T any](s Snapshot) Result[T] {
	r := Result[T]{
		IsLoading: s.IsLoading(),
		HasData:   s.HasData,
		Err:       s.Err,
		Fetching:  s.Fetching,
		UpdatedAt: s.UpdatedAt,
	}
	if v, ok := s.Data.(T); ok {
		r.Data = v
	}
	return r
}

// Query is a Handle with a typed payload.
type Query[T any] struct {
	*Handle
}

// Subscribe is the typed form of Cache.Subscribe.
func Subscribe[T any](c *Cache, key Key, fetch func(context.Context) (T, error), opts Options) *Query[T] {
	h := c.Subscribe(key, func(ctx context.Context) (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, opts)
	return &Query[T]{Handle: h}
}

func (q *Query[T]) Result() Result[T] {
	return ResultOf[T](q.Snapshot())
}
