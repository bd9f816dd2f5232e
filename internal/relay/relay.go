package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"sniper/internal/model"
)

// Bus channel names shared with the downstream worker.
const (
	ChannelPriceUpdates = "price-updates"
	ChannelSignals      = "arbitrage-signals"
	ChannelOrders       = "executed-orders"
	ChannelMetrics      = "performance-metrics"
)

// retryDelay is the fixed wait before resubscribing after the bus
// connection is lost or cannot be established. Like the venue adapters,
// the relay retries for the life of the process.
const retryDelay = 5 * time.Second

// Broadcaster is the hub-facing half of the relay.
type Broadcaster interface {
	Publish(event string, data any)
}

// Relay subscribes to the bus channels and republishes every inbound
// message to the broadcast hub. It performs no deduplication: a message
// delivered twice is broadcast twice.
type Relay struct {
	rdb    *redis.Client
	hub    Broadcaster
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
}

// New creates a relay reading from the Redis host and writing to the
// given broadcaster.
func New(redisAddr string, hub Broadcaster, logger *slog.Logger) *Relay {
	return &Relay{
		rdb:    redis.NewClient(&redis.Options{Addr: redisAddr}),
		hub:    hub,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// Run keeps a subscription to all four bus channels alive until the
// context is cancelled. A broker that is unreachable, at startup or
// later, costs the fixed delay and another attempt; the relay never
// gives up.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := r.consume(ctx); err != nil {
			r.logger.Error("relay: bus subscription failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		r.logger.Info("relay: resubscribing", "delay", retryDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-r.after(retryDelay):
		}
	}
}

// consume holds one subscription and dispatches messages until the
// context is cancelled or the subscription dies. A message that fails
// to parse is logged and skipped; the subscription itself survives.
func (r *Relay) consume(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, ChannelPriceUpdates, ChannelSignals, ChannelOrders, ChannelMetrics)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("relay: subscribed to bus channels", "channels", 4)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("bus subscription channel closed")
			}
			r.dispatch(msg.Channel, msg.Payload)
		}
	}
}

// dispatch parses one bus message according to its channel and forwards
// it to the hub.
func (r *Relay) dispatch(channel, payload string) {
	switch channel {
	case ChannelPriceUpdates:
		var tick model.PriceTick
		if err := json.Unmarshal([]byte(payload), &tick); err != nil {
			r.logger.Error("relay: bad price update", "error", err)
			return
		}
		r.hub.Publish("price-update", tick)
	case ChannelSignals:
		// Signal payloads are plain text; wrap with the receipt time.
		r.hub.Publish("signal", model.Signal{Time: r.now().UnixMilli(), Message: payload})
	case ChannelOrders:
		var order model.Order
		if err := json.Unmarshal([]byte(payload), &order); err != nil {
			r.logger.Error("relay: bad order", "error", err)
			return
		}
		r.hub.Publish("order-executed", order)
		r.logger.Info("relay: order executed", "order", order.ID, "net_profit", order.NetProfit)
	case ChannelMetrics:
		var metrics model.Metrics
		if err := json.Unmarshal([]byte(payload), &metrics); err != nil {
			r.logger.Error("relay: bad metrics snapshot", "error", err)
			return
		}
		r.hub.Publish("metrics-update", metrics)
	default:
		r.logger.Warn("relay: message on unexpected channel", "channel", channel)
	}
}

// Close releases the relay's bus connection.
func (r *Relay) Close() error {
	return r.rdb.Close()
}
