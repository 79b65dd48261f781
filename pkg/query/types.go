package query

import (
	"context"
	"errors"
	"time"
)

// DefaultCacheTime is how long an entry with no subscribers is kept before
// it is evicted.
const DefaultCacheTime = 5 * time.Minute

// ErrClosed is reported by handles obtained from a closed Cache.
var ErrClosed = errors.New("query: cache closed")

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Key addresses one cached resource: a resource kind plus an asset id. The
// asset id is empty for collection resources such as the asset list.
type Key struct {
	Kind    string
	AssetID string
}

func (k Key) String() string {
	if k.AssetID == "" {
		return k.Kind
	}
	return k.Kind + "/" + k.AssetID
}

// FetchFunc loads the payload for a key. It must honor ctx cancellation.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Options configure one subscription.
type Options struct {
	// RefetchInterval re-issues the fetch every interval while this
	// subscription is open. Zero means fetch once.
	RefetchInterval time.Duration

	// StaleTime lets a new subscription reuse a successful result younger
	// than this instead of refetching. Zero always refetches.
	StaleTime time.Duration

	// CacheTime is how long the entry survives once its last subscription
	// closes. Zero means DefaultCacheTime, negative evicts immediately.
	CacheTime time.Duration

	// Retries wraps each fetch in an exponential backoff with at most this
	// many extra attempts. RetryDelay overrides the initial backoff interval
	// and ShouldRetry, when set, filters which errors are retried.
	Retries     uint64
	RetryDelay  time.Duration
	ShouldRetry func(error) bool
}

func (o Options) cacheTime() time.Duration {
	if o.CacheTime == 0 {
		return DefaultCacheTime
	}
	return o.CacheTime
}

// Snapshot is an immutable copy of a cache entry.
type Snapshot struct {
	Key    Key
	Status Status

	// Data is the last successful payload. It survives failed refetches,
	// so HasData together with Err tells "no data yet" apart from "data
	// present but the last refresh failed".
	Data    interface{}
	HasData bool
	Err     error

	// Fetching is true while a fetch for the key is in flight.
	Fetching bool

	// LastFetchedAt is when the last fetch settled, successfully or not.
	// UpdatedAt is when Data was last replaced.
	LastFetchedAt time.Time
	UpdatedAt     time.Time

	RefetchInterval time.Duration
}

// IsLoading reports whether the first fetch for the key has not settled yet.
func (s Snapshot) IsLoading() bool {
	return s.Status == StatusLoading
}
