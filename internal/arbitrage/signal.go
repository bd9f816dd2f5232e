package arbitrage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sniper/internal/model"
)

// Signal messages share one textual grammar across the whole system:
//
//	BINANCE → KRAKEN | Compra: $50000.00 | Venta: $50100.00 | Spread: 0.200% | Si ejecutas ahora: +$0.85
//
// Every producer formats with FormatSignal and every consumer parses
// with DecodeSignal; nothing else pattern-matches signal text.
var (
	exchangesPattern = regexp.MustCompile(`(\w+)\s*→\s*(\w+)`)
	buyPattern       = regexp.MustCompile(`(?i)Compra: \$(\d+(?:,\d+)*(?:\.\d+)?)`)
	sellPattern      = regexp.MustCompile(`(?i)Venta: \$(\d+(?:,\d+)*(?:\.\d+)?)`)
)

// SignalDetails is the typed result of decoding a signal message.
type SignalDetails struct {
	BuyExchange  string
	SellExchange string
	BuyPrice     float64
	SellPrice    float64
}

// DecodeSignal extracts the venue pair and both prices from a signal
// message. It returns an error when the message does not match the
// grammar; callers drop the message in that case.
func DecodeSignal(message string) (SignalDetails, error) {
	ex := exchangesPattern.FindStringSubmatch(message)
	buy := buyPattern.FindStringSubmatch(message)
	sell := sellPattern.FindStringSubmatch(message)
	if ex == nil || buy == nil || sell == nil {
		return SignalDetails{}, fmt.Errorf("signal message does not match expected pattern: %q", message)
	}

	buyPrice, err := strconv.ParseFloat(strings.ReplaceAll(buy[1], ",", ""), 64)
	if err != nil {
		return SignalDetails{}, fmt.Errorf("invalid buy price in signal: %w", err)
	}
	sellPrice, err := strconv.ParseFloat(strings.ReplaceAll(sell[1], ",", ""), 64)
	if err != nil {
		return SignalDetails{}, fmt.Errorf("invalid sell price in signal: %w", err)
	}

	return SignalDetails{
		BuyExchange:  strings.ToLower(ex[1]),
		SellExchange: strings.ToLower(ex[2]),
		BuyPrice:     buyPrice,
		SellPrice:    sellPrice,
	}, nil
}

// FormatSignal renders a signal message in the canonical grammar. The
// estimated profit figure carries an explicit +/- prefix; that sign is
// how consumers read profitability off the text.
func FormatSignal(buyExchange, sellExchange string, buyPrice, sellPrice, spreadPct, netProfit float64) string {
	indicator := fmt.Sprintf("+$%.2f", netProfit)
	if netProfit < 0 {
		indicator = fmt.Sprintf("-$%.2f", -netProfit)
	}
	return fmt.Sprintf("%s → %s | Compra: $%.2f | Venta: $%.2f | Spread: %.3f%% | Si ejecutas ahora: %s",
		strings.ToUpper(buyExchange), strings.ToUpper(sellExchange),
		buyPrice, sellPrice, spreadPct, indicator)
}

// NewOrder builds an executed order from a buy/sell price pair using
// the fixed trade size and combined fee rate.
func NewOrder(id string, timestamp int64, buyExchange, sellExchange string, buyPrice, sellPrice, executionMS float64) model.Order {
	buyCost := buyPrice * TradeAmount
	sellRevenue := sellPrice * TradeAmount
	grossProfit := sellRevenue - buyCost
	fees := (buyCost + sellRevenue) * FeeRate
	netProfit := grossProfit - fees

	return model.Order{
		ID:              id,
		Timestamp:       timestamp,
		BuyExchange:     strings.ToLower(buyExchange),
		SellExchange:    strings.ToLower(sellExchange),
		BuyPrice:        buyPrice,
		SellPrice:       sellPrice,
		Amount:          TradeAmount,
		GrossProfit:     grossProfit,
		Fees:            fees,
		NetProfit:       netProfit,
		ProfitPct:       netProfit / buyCost * 100,
		ExecutionTimeMS: executionMS,
		Status:          "EXECUTED",
	}
}

// NewManualOrder synthesizes an order from a decoded signal on behalf
// of an observer's manual-execution request.
func NewManualOrder(timestamp int64, d SignalDetails, executionMS float64) model.Order {
	order := NewOrder(
		fmt.Sprintf("ORD-MANUAL-%d", timestamp), timestamp,
		d.BuyExchange, d.SellExchange, d.BuyPrice, d.SellPrice, executionMS,
	)
	order.Manual = true
	return order
}
