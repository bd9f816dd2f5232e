package exchange

import (
	"context"
	"time"

	"sniper/internal/model"
)

// reconnectDelay is the fixed wait between connection attempts. There
// is no backoff growth and no give-up condition: a venue that stays
// down is retried for the life of the process.
const reconnectDelay = 5 * time.Second

// Client defines the standard interface for all venue streaming clients.
type Client interface {
	Name() string
	StartStream(ctx context.Context, ticks chan<- model.PriceTick, pair string) error
}
