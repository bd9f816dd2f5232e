package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"sniper/internal/model"
)

// KrakenClient implements the Client interface for Kraken. Unlike
// Binance, Kraken requires an explicit subscription message after
// connecting.
type KrakenClient struct {
	logger *slog.Logger
	url    string
	dialer *websocket.Dialer
	after  func(time.Duration) <-chan time.Time
	now    func() time.Time
}

// NewKrakenClient creates a new KrakenClient.
func NewKrakenClient(logger *slog.Logger, url string) *KrakenClient {
	return &KrakenClient{
		logger: logger,
		url:    url,
		dialer: websocket.DefaultDialer,
		after:  time.After,
		now:    time.Now,
	}
}

func (k *KrakenClient) Name() string {
	return "kraken"
}

// StartStream connects to the Kraken WebSocket API, subscribes to the
// ticker channel for the given pair and streams ticks until the context
// is cancelled. Reconnects after the fixed delay on any error or close.
func (k *KrakenClient) StartStream(ctx context.Context, ticks chan<- model.PriceTick, pair string) error {
	for {
		if ctx.Err() != nil {
			k.logger.Info("kraken: context cancelled, shutting down")
			return nil
		}

		conn, _, err := k.dialer.DialContext(ctx, k.url, nil)
		if err != nil {
			k.logger.Error("kraken: connection failed", "error", err)
		} else {
			k.logger.Info("kraken: connected", "url", k.url)
			k.stream(ctx, conn, ticks, pair)
		}

		k.logger.Info("kraken: reconnecting", "delay", reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-k.after(reconnectDelay):
		}
	}
}

// stream performs the subscribe handshake and then consumes frames
// until the connection drops. It owns the connection.
func (k *KrakenClient) stream(ctx context.Context, conn *websocket.Conn, ticks chan<- model.PriceTick, pair string) {
	defer conn.Close()

	subscription := map[string]any{
		"event": "subscribe",
		"pair":  []string{pair},
		"subscription": map[string]string{
			"name": "ticker",
		},
	}
	if err := conn.WriteJSON(subscription); err != nil {
		k.logger.Error("kraken: failed to send subscription", "error", err)
		return
	}
	k.logger.Info("kraken: subscription sent", "pair", pair)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			k.logger.Error("kraken: read failed", "error", err)
			return
		}

		tick, err := normalizeKraken(message, k.now().UnixMilli())
		if err != nil {
			if !errors.Is(err, errSkip) {
				k.logger.Warn("kraken: dropping frame", "error", err)
			}
			continue
		}
		if !tick.Valid() {
			k.logger.Warn("kraken: dropping invalid tick", "bid", tick.Bid, "ask", tick.Ask)
			continue
		}

		select {
		case ticks <- tick:
		case <-ctx.Done():
			return
		}
	}
}

// krakenTicker is the payload at index 1 of a ticker frame. Ask and bid
// come as [price, wholeLotVolume, lotVolume] triples mixing strings and
// numbers, so the elements stay untyped until parsed.
type krakenTicker struct {
	Ask []any `json:"a"`
	Bid []any `json:"b"`
}

// parseKrakenValue accepts the string-or-number values Kraken puts in
// ticker triples.
func parseKrakenValue(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected ticker value type %T", v)
	}
}

// normalizeKraken maps a raw Kraken frame to a canonical tick. Ticker
// data arrives as [channelID, ticker, "ticker", pair]; event frames are
// JSON objects and are skipped.
func normalizeKraken(data []byte, ts int64) (model.PriceTick, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		// Not an array: a status/heartbeat event, not ticker data.
		return model.PriceTick{}, errSkip
	}
	if len(frame) < 2 {
		return model.PriceTick{}, errSkip
	}

	var ticker krakenTicker
	if err := json.Unmarshal(frame[1], &ticker); err != nil {
		return model.PriceTick{}, errSkip
	}
	if len(ticker.Ask) < 2 || len(ticker.Bid) < 2 {
		return model.PriceTick{}, errSkip
	}

	ask, err := parseKrakenValue(ticker.Ask[0])
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse ask price: %w", err)
	}
	askQty, err := parseKrakenValue(ticker.Ask[1])
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse ask qty: %w", err)
	}
	bid, err := parseKrakenValue(ticker.Bid[0])
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse bid price: %w", err)
	}
	bidQty, err := parseKrakenValue(ticker.Bid[1])
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("parse bid qty: %w", err)
	}

	return model.PriceTick{
		Exchange:  "kraken",
		Timestamp: ts,
		Bid:       bid,
		Ask:       ask,
		BidQty:    bidQty,
		AskQty:    askQty,
	}, nil
}
