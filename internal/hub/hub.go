package hub

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"sniper/internal/arbitrage"
	"sniper/internal/model"
)

// sendBuffer is the per-observer outbound queue depth. Observers that
// fall further behind than this start losing events; delivery is
// best-effort.
const sendBuffer = 64

// Event is the envelope for every observer-bound message.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundEvent mirrors Event for observer-originated messages, with the
// payload left raw until the event name selects a type.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type welcomeMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans events out to every connected dashboard observer and accepts
// the single observer-originated event, a manual order execution
// request.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
	execMS   func() float64

	mu        sync.RWMutex
	observers map[*observer]struct{}
	published int64
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:       time.Now,
		execMS:    func() float64 { return 1 + rand.Float64()*2 },
		observers: make(map[*observer]struct{}),
	}
}

// ConnectedObservers returns the current observer count.
func (h *Hub) ConnectedObservers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// EventsPublished returns how many events have been broadcast since
// startup.
func (h *Hub) EventsPublished() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published
}

// Publish broadcasts one event to every currently connected observer.
// Fire-and-forget: observers whose queue is full simply miss the event,
// and nothing an observer does can fail the publisher.
func (h *Hub) Publish(event string, data any) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.logger.Error("hub: failed to encode event", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	h.published++
	for o := range h.observers {
		select {
		case o.send <- payload:
		default:
		}
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades an observer connection and serves it until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("hub: upgrade failed", "error", err)
		return
	}

	o := &observer{
		id:   uuid.NewString()[:8],
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.observers[o] = struct{}{}
	total := len(h.observers)
	h.mu.Unlock()
	h.logger.Info("hub: observer connected", "id", o.id, "total", total)

	go o.writePump()
	h.greet(o)
	h.readPump(o)
}

// greet sends the connection welcome event directly to one observer.
func (h *Hub) greet(o *observer) {
	payload, err := json.Marshal(Event{Event: "message", Data: welcomeMessage{
		Type:      "welcome",
		Text:      "Conectado al Arbitrage Sniper",
		Timestamp: h.now().UnixMilli(),
	}})
	if err != nil {
		return
	}
	select {
	case o.send <- payload:
	default:
	}
}

// readPump consumes observer-originated events until the connection
// drops, then unregisters the observer.
func (h *Hub) readPump(o *observer) {
	defer h.remove(o)
	for {
		_, message, err := o.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			h.logger.Warn("hub: unreadable observer message", "id", o.id, "error", err)
			continue
		}

		switch ev.Event {
		case "execute-manual-order":
			var req model.ManualOrderRequest
			if err := json.Unmarshal(ev.Data, &req); err != nil {
				h.logger.Warn("hub: bad manual order request", "id", o.id, "error", err)
				continue
			}
			h.executeManualOrder(o.id, req)
		default:
			h.logger.Warn("hub: unknown observer event", "id", o.id, "event", ev.Event)
		}
	}
}

// executeManualOrder synthesizes an order from the signal text carried
// by the request and broadcasts it. Requests whose message does not
// match the signal grammar are dropped.
func (h *Hub) executeManualOrder(observerID string, req model.ManualOrderRequest) {
	h.logger.Info("hub: manual order requested", "id", observerID, "message", req.Message)

	details, err := arbitrage.DecodeSignal(req.Message)
	if err != nil {
		h.logger.Error("hub: could not extract prices from signal", "id", observerID, "error", err)
		return
	}

	order := arbitrage.NewManualOrder(h.now().UnixMilli(), details, h.execMS())
	h.Publish("order-executed", order)
	h.logger.Info("hub: manual order executed", "order", order.ID, "net_profit", order.NetProfit)
}

// remove unregisters an observer. The count never goes negative because
// only a registered observer is ever removed.
func (h *Hub) remove(o *observer) {
	h.mu.Lock()
	_, ok := h.observers[o]
	if ok {
		delete(h.observers, o)
		close(o.send)
	}
	total := len(h.observers)
	h.mu.Unlock()

	if ok {
		h.logger.Info("hub: observer disconnected", "id", o.id, "total", total)
	}
}
