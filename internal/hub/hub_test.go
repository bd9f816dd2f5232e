package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sniper/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type receivedEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialObserver(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) receivedEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev receivedEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	return ev
}

func TestHub_WelcomeOnConnect(t *testing.T) {
	h := New(testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialObserver(t, srv)
	ev := readEvent(t, conn)
	assert.Equal(t, "message", ev.Event)

	var welcome struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &welcome))
	assert.Equal(t, "welcome", welcome.Type)
	assert.NotEmpty(t, welcome.Text)
}

func TestHub_ObserverCount(t *testing.T) {
	h := New(testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	assert.Equal(t, 0, h.ConnectedObservers())

	first := dialObserver(t, srv)
	second := dialObserver(t, srv)
	require.Eventually(t, func() bool { return h.ConnectedObservers() == 2 }, 5*time.Second, 10*time.Millisecond)

	first.Close()
	require.Eventually(t, func() bool { return h.ConnectedObservers() == 1 }, 5*time.Second, 10*time.Millisecond)

	second.Close()
	require.Eventually(t, func() bool { return h.ConnectedObservers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_PublishReachesEveryObserver(t *testing.T) {
	h := New(testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	first := dialObserver(t, srv)
	second := dialObserver(t, srv)
	readEvent(t, first)  // welcome
	readEvent(t, second) // welcome
	require.Eventually(t, func() bool { return h.ConnectedObservers() == 2 }, 5*time.Second, 10*time.Millisecond)

	tick := model.PriceTick{Exchange: "binance", Timestamp: 1, Bid: 50000, Ask: 50001}
	h.Publish("price-update", tick)

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, "price-update", ev.Event)
		var got model.PriceTick
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		assert.Equal(t, tick, got)
	}
}

func TestHub_ManualOrderExecution(t *testing.T) {
	h := New(testLogger())
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	h.execMS = func() float64 { return 1.5 }
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialObserver(t, srv)
	readEvent(t, conn) // welcome

	req := map[string]any{
		"event": "execute-manual-order",
		"data": model.ManualOrderRequest{
			Message:      "BINANCE → KRAKEN | Compra: $50000.00 | Venta: $50100.00 | Spread: 0.200% | Si ejecutas ahora: -$0.00",
			Time:         1700000000000,
			BuyExchange:  "binance",
			SellExchange: "kraken",
		},
	}
	require.NoError(t, conn.WriteJSON(req))

	ev := readEvent(t, conn)
	assert.Equal(t, "order-executed", ev.Event)

	var order model.Order
	require.NoError(t, json.Unmarshal(ev.Data, &order))
	assert.Equal(t, "ORD-MANUAL-1700000000000", order.ID)
	assert.True(t, order.Manual)
	assert.Equal(t, "binance", order.BuyExchange)
	assert.Equal(t, "kraken", order.SellExchange)
	assert.Equal(t, 0.01, order.Amount)
	assert.InDelta(t, 1.001, order.Fees, 1e-9)
	assert.InDelta(t, 1.00, order.GrossProfit, 1e-9)
	assert.InDelta(t, -0.001, order.NetProfit, 1e-9)
	assert.Equal(t, 1.5, order.ExecutionTimeMS)
}

func TestHub_ManualOrderBadPatternIsDropped(t *testing.T) {
	h := New(testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialObserver(t, srv)
	readEvent(t, conn) // welcome

	req := map[string]any{
		"event": "execute-manual-order",
		"data":  model.ManualOrderRequest{Message: "no prices in here"},
	}
	require.NoError(t, conn.WriteJSON(req))

	// No order may be broadcast: the next event the observer sees must
	// be this sentinel, not an order-executed.
	time.Sleep(50 * time.Millisecond)
	h.Publish("sentinel", "ping")
	ev := readEvent(t, conn)
	assert.Equal(t, "sentinel", ev.Event)
}

func TestHub_PublishWithNoObservers(t *testing.T) {
	h := New(testLogger())
	// Must not panic or block.
	h.Publish("price-update", model.PriceTick{Exchange: "binance", Bid: 1, Ask: 2})
	assert.Equal(t, int64(1), h.EventsPublished())
}
