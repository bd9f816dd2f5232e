package relay

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"sniper/internal/model"
)

// Publisher writes to the bus on behalf of the simulation engine. It
// holds its own connection, independent of the subscribing relay, so
// the two never contend for one client.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a bus publisher for the Redis host.
func NewPublisher(redisAddr string) *Publisher {
	return &Publisher{rdb: redis.NewClient(&redis.Options{Addr: redisAddr})}
}

// PublishTick publishes a canonical tick on the price-updates channel.
func (p *Publisher) PublishTick(ctx context.Context, tick model.PriceTick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, ChannelPriceUpdates, payload).Err()
}

// PublishSignal publishes signal text on the arbitrage-signals channel.
func (p *Publisher) PublishSignal(ctx context.Context, message string) error {
	return p.rdb.Publish(ctx, ChannelSignals, message).Err()
}

// Close releases the publisher's bus connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
