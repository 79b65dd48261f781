package publisher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alim08/coinwatch/pkg/models"
	redismock "github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicker() models.AssetTicker {
	return models.AssetTicker{
		ID:          "btc-bitcoin",
		Name:        "Bitcoin",
		Symbol:      "BTC",
		Rank:        1,
		LastUpdated: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Quote:       models.Quote{Price: 50000.123},
	}
}

func expectTicker(t *testing.T, mock redismock.ClientMock, tk models.AssetTicker) {
	t.Helper()
	payload, err := tk.ToJSON()
	require.NoError(t, err)
	mock.ExpectHSet("coins:latest:btc-bitcoin", "price", "50000.123", "last_updated", "2024-05-01T12:00:00Z").SetVal(2)
	mock.ExpectPublish("coins:tickers", payload).SetVal(1)
}

// TestPublish_Success verifies the latest hash is written and the ticker JSON
// is published.
func TestPublish_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewPublisher(NewWithClient(db), "coins:tickers", 1)

	tk := sampleTicker()
	expectTicker(t, mock, tk)

	require.NoError(t, p.Publish(context.Background(), tk))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPublish_RetryOnError ensures the hash write is retried on a transient
// Redis error.
func TestPublish_RetryOnError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewPublisher(NewWithClient(db), "coins:tickers", 1)

	tk := sampleTicker()
	payload, err := tk.ToJSON()
	require.NoError(t, err)
	mock.ExpectHSet("coins:latest:btc-bitcoin", "price", "50000.123", "last_updated", "2024-05-01T12:00:00Z").SetErr(errors.New("LOADING"))
	mock.ExpectHSet("coins:latest:btc-bitcoin", "price", "50000.123", "last_updated", "2024-05-01T12:00:00Z").SetVal(2)
	mock.ExpectPublish("coins:tickers", payload).SetVal(1)

	require.NoError(t, p.Publish(context.Background(), tk))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewWithClient(db)

	for i := 0; i < breakerThreshold; i++ {
		mock.ExpectPublish("ch", "m").SetErr(errors.New("connection reset"))
	}
	for i := 0; i < breakerThreshold; i++ {
		require.Error(t, c.Publish(context.Background(), "ch", "m"))
	}

	err := c.Publish(context.Background(), "ch", "m")
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitBreaker_TrialCallCloses(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewWithClient(db)
	atomic.StoreInt32(&c.state, stateOpen)
	atomic.StoreInt64(&c.failureCount, breakerThreshold)
	atomic.StoreInt64(&c.lastFailure, time.Now().Add(-2*breakerCooldown).Unix())

	mock.ExpectPublish("ch", "m").SetVal(1)
	require.NoError(t, c.Publish(context.Background(), "ch", "m"))
	assert.Equal(t, stateClosed, atomic.LoadInt32(&c.state))
	assert.Zero(t, atomic.LoadInt64(&c.failureCount))
}

func TestCircuitBreaker_RejectsDuringCooldown(t *testing.T) {
	db, _ := redismock.NewClientMock()
	c := NewWithClient(db)
	atomic.StoreInt32(&c.state, stateOpen)
	atomic.StoreInt64(&c.lastFailure, time.Now().Unix())

	assert.ErrorIs(t, c.SetLatest(context.Background(), "k", "f", "v"), ErrCircuitBreakerOpen)
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	db, _ := redismock.NewClientMock()
	p := NewPublisher(NewWithClient(db), "coins:tickers", 1)

	assert.True(t, p.Enqueue(sampleTicker()))
	assert.False(t, p.Enqueue(sampleTicker()))
}

func TestRun_DrainsQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewPublisher(NewWithClient(db), "coins:tickers", 4)
	expectTicker(t, mock, sampleTicker())
	require.True(t, p.Enqueue(sampleTicker()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}
