package relay

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"sniper/internal/model"
)

// TestRelay_EndToEnd runs the relay against a real Redis broker and
// checks the full subscribe-parse-forward path for every channel.
func TestRelay_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)
	addr := host + ":" + port.Port()

	hub := &stubHub{}
	r := New(addr, hub, testLogger())
	defer r.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.Run(runCtx)

	// Wait for the subscription to land before publishing.
	raw := redis.NewClient(&redis.Options{Addr: addr})
	defer raw.Close()
	require.Eventually(t, func() bool {
		counts, err := raw.PubSubNumSub(ctx, ChannelPriceUpdates).Result()
		return err == nil && counts[ChannelPriceUpdates] == 1
	}, 10*time.Second, 50*time.Millisecond)

	// Ticks and signal text go through the same Publisher the
	// simulation engine uses; order and metrics through a raw client
	// like the external worker would.
	pub := NewPublisher(addr)
	defer pub.Close()

	tick := model.PriceTick{Exchange: "binance", Timestamp: 42, Bid: 50000, Ask: 50001}
	require.NoError(t, pub.PublishTick(ctx, tick))

	message := "BINANCE → KRAKEN | Compra: $50000.00 | Venta: $50100.00 | Spread: 0.200% | Si ejecutas ahora: -$0.00"
	require.NoError(t, pub.PublishSignal(ctx, message))

	require.NoError(t, raw.Publish(ctx, ChannelOrders,
		`{"id":"ORD-7","buy_exchange":"binance","sell_exchange":"kraken","net_profit":0.25,"status":"EXECUTED"}`).Err())
	require.NoError(t, raw.Publish(ctx, ChannelMetrics,
		`{"avg_latency_ms":1.2,"total_orders":7,"total_profit":3.5}`).Err())

	require.Eventually(t, func() bool { return len(hub.snapshot()) == 4 }, 10*time.Second, 50*time.Millisecond)

	byEvent := map[string]any{}
	for _, ev := range hub.snapshot() {
		byEvent[ev.event] = ev.data
	}

	assert.Equal(t, tick, byEvent["price-update"])

	signal, ok := byEvent["signal"].(model.Signal)
	require.True(t, ok)
	assert.Equal(t, message, signal.Message)
	assert.NotZero(t, signal.Time)

	order, ok := byEvent["order-executed"].(model.Order)
	require.True(t, ok)
	assert.Equal(t, "ORD-7", order.ID)
	assert.Equal(t, 0.25, order.NetProfit)

	metrics, ok := byEvent["metrics-update"].(model.Metrics)
	require.True(t, ok)
	assert.Equal(t, int64(7), metrics.TotalOrders)
}
