package push

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sniper/internal/model"
)

// fakeSender records dispatch order and flags any overlapping sends.
type fakeSender struct {
	mu         sync.Mutex
	sent       [][]byte
	inFlight   int32
	overlapped atomic.Bool
	delay      time.Duration
	failAt     int
}

func (f *fakeSender) Send(payload []byte) error {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		f.overlapped.Store(true)
	}
	defer atomic.AddInt32(&f.inFlight, -1)
	time.Sleep(f.delay)

	f.mu.Lock()
	f.sent = append(f.sent, payload)
	n := len(f.sent)
	f.mu.Unlock()

	if f.failAt != 0 && n == f.failAt {
		return errors.New("transport rejected message")
	}
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) sentTimestamps(t *testing.T) []int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.sent))
	for _, payload := range f.sent {
		var tick model.PriceTick
		require.NoError(t, json.Unmarshal(payload, &tick))
		out = append(out, tick.Timestamp)
	}
	return out
}

func await(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch promise never resolved")
		return nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueue_DispatchOrderMatchesEnqueueOrder(t *testing.T) {
	sender := &fakeSender{delay: 2 * time.Millisecond}
	queue := NewQueue(testLogger(), sender)

	var promises []<-chan error
	for i := 1; i <= 10; i++ {
		promises = append(promises, queue.Enqueue(model.PriceTick{
			Exchange:  "binance",
			Timestamp: int64(i),
			Bid:       50000,
			Ask:       50001,
		}))
	}
	for _, done := range promises {
		assert.NoError(t, await(t, done))
	}

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sender.sentTimestamps(t))
	assert.False(t, sender.overlapped.Load(), "two sends were in flight at once")
}

func TestQueue_FailedSendRejectsOnlyThatItem(t *testing.T) {
	sender := &fakeSender{failAt: 2}
	queue := NewQueue(testLogger(), sender)

	first := queue.Enqueue(model.PriceTick{Exchange: "binance", Timestamp: 1, Bid: 1, Ask: 1})
	second := queue.Enqueue(model.PriceTick{Exchange: "binance", Timestamp: 2, Bid: 1, Ask: 1})
	third := queue.Enqueue(model.PriceTick{Exchange: "binance", Timestamp: 3, Bid: 1, Ask: 1})

	assert.NoError(t, await(t, first))
	assert.Error(t, await(t, second))
	assert.NoError(t, await(t, third))

	// The failed item is dropped, never retried.
	assert.Equal(t, []int64{1, 2, 3}, sender.sentTimestamps(t))
}

func TestQueue_EnqueueWhileDraining(t *testing.T) {
	sender := &fakeSender{delay: 20 * time.Millisecond}
	queue := NewQueue(testLogger(), sender)

	first := queue.Enqueue(model.PriceTick{Exchange: "kraken", Timestamp: 1, Bid: 1, Ask: 1})
	// Enqueue the second while the first is still in flight.
	time.Sleep(5 * time.Millisecond)
	second := queue.Enqueue(model.PriceTick{Exchange: "kraken", Timestamp: 2, Bid: 1, Ask: 1})

	assert.NoError(t, await(t, first))
	assert.NoError(t, await(t, second))
	assert.Equal(t, []int64{1, 2}, sender.sentTimestamps(t))
	assert.False(t, sender.overlapped.Load())
}
