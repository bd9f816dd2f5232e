package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"sniper/internal/model"
)

// errSkip marks inbound frames that are well-formed but carry no ticker
// data (heartbeats, subscription acks, other symbols). They are ignored
// without logging.
var errSkip = errors.New("frame carries no ticker data")

// BinanceClient implements the Client interface for Binance.
type BinanceClient struct {
	logger *slog.Logger
	url    string
	dialer *websocket.Dialer
	after  func(time.Duration) <-chan time.Time
	now    func() time.Time
}

// NewBinanceClient creates a new BinanceClient streaming from the given
// bookTicker endpoint.
func NewBinanceClient(logger *slog.Logger, url string) *BinanceClient {
	return &BinanceClient{
		logger: logger,
		url:    url,
		dialer: websocket.DefaultDialer,
		after:  time.After,
		now:    time.Now,
	}
}

func (b *BinanceClient) Name() string {
	return "binance"
}

// StartStream connects to the Binance WebSocket API and streams ticks
// for the given pair until the context is cancelled. Any connection
// error or close schedules a reconnect after the fixed delay; the loop
// never gives up.
func (b *BinanceClient) StartStream(ctx context.Context, ticks chan<- model.PriceTick, pair string) error {
	symbol := strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
	for {
		if ctx.Err() != nil {
			b.logger.Info("binance: context cancelled, shutting down")
			return nil
		}

		conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
		if err != nil {
			b.logger.Error("binance: connection failed", "error", err)
		} else {
			b.logger.Info("binance: connected", "url", b.url)
			b.readLoop(ctx, conn, ticks, symbol)
		}

		b.logger.Info("binance: reconnecting", "delay", reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-b.after(reconnectDelay):
		}
	}
}

// readLoop consumes frames until the connection drops or the context is
// cancelled. It owns the connection and always closes it on return.
func (b *BinanceClient) readLoop(ctx context.Context, conn *websocket.Conn, ticks chan<- model.PriceTick, symbol string) {
	defer conn.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			b.logger.Error("binance: read failed", "error", err)
			return
		}

		tick, err := normalizeBinance(message, symbol, b.now().UnixMilli())
		if err != nil {
			if !errors.Is(err, errSkip) {
				b.logger.Warn("binance: dropping frame", "error", err)
			}
			continue
		}
		if !tick.Valid() {
			b.logger.Warn("binance: dropping invalid tick", "bid", tick.Bid, "ask", tick.Ask)
			continue
		}

		select {
		case ticks <- tick:
		case <-ctx.Done():
			return
		}
	}
}

type binanceBookTicker struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

// normalizeBinance maps a raw bookTicker frame to a canonical tick.
// Pure function; the timestamp is supplied by the caller.
func normalizeBinance(data []byte, symbol string, ts int64) (model.PriceTick, error) {
	var raw binanceBookTicker
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.PriceTick{}, fmt.Errorf("parse bookTicker frame: %w", err)
	}
	if raw.Symbol != symbol {
		return model.PriceTick{}, errSkip
	}

	bid, err := strconv.ParseFloat(raw.Bid, 64)
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse bid price: %w", err)
	}
	ask, err := strconv.ParseFloat(raw.Ask, 64)
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse ask price: %w", err)
	}
	// Quantities are optional in practice; a missing one parses to zero.
	bidQty, _ := strconv.ParseFloat(raw.BidQty, 64)
	askQty, _ := strconv.ParseFloat(raw.AskQty, 64)

	return model.PriceTick{
		Exchange:  "binance",
		Timestamp: ts,
		Bid:       bid,
		Ask:       ask,
		BidQty:    bidQty,
		AskQty:    askQty,
	}, nil
}
