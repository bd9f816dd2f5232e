package push

import (
	"encoding/json"
	"log/slog"
	"sync"

	"sniper/internal/model"
)

// Sender is the downstream transport the queue drains into.
type Sender interface {
	Send(payload []byte) error
	Close() error
}

type item struct {
	payload []byte
	done    chan error
}

// Queue serializes tick delivery to the downstream worker: strict FIFO,
// at most one send in flight at a time. A failed send is logged, the
// item is dropped (no retry) and draining continues with the next entry.
type Queue struct {
	logger *slog.Logger
	sender Sender

	mu       sync.Mutex
	items    []item
	draining bool
}

// NewQueue creates a delivery queue draining into the given sender.
func NewQueue(logger *slog.Logger, sender Sender) *Queue {
	return &Queue{logger: logger, sender: sender}
}

// Enqueue appends the tick to the queue and returns a channel that
// receives the dispatch outcome for this specific tick: nil once it has
// been accepted by the transport, or the send error.
func (q *Queue) Enqueue(tick model.PriceTick) <-chan error {
	done := make(chan error, 1)

	payload, err := json.Marshal(tick)
	if err != nil {
		done <- err
		return done
	}

	q.mu.Lock()
	q.items = append(q.items, item{payload: payload, done: done})
	if !q.draining {
		q.draining = true
		go q.drain()
	}
	q.mu.Unlock()

	return done
}

// drain pops and sends entries one at a time until the queue is empty.
// Only one drain goroutine exists at any moment, which is what enforces
// both ordering and the single-flight guarantee.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		next := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		err := q.sender.Send(next.payload)
		if err != nil {
			q.logger.Error("push: send failed, dropping tick", "error", err)
		}
		next.done <- err
	}
}
