package arbitrage

import (
	"math"

	"sniper/internal/model"
)

const (
	// SpreadThreshold is the live-mode profitability threshold in percent.
	SpreadThreshold = 0.1
	// SimSpreadThreshold is the looser threshold used by the simulation
	// engine so opportunities are visible during demos. Kept separate
	// from SpreadThreshold on purpose.
	SimSpreadThreshold = 0.05

	// TradeAmount is the nominal size of every simulated execution.
	TradeAmount = 0.01
	// FeeRate is the combined taker fee applied to buy cost plus sell
	// revenue.
	FeeRate = 0.001
)

// SpreadResult is the outcome of comparing the latest tick pair.
type SpreadResult struct {
	Spread     float64
	Profitable bool
}

// RawSpread is the signed cross-venue spread in percent: buy at a's
// ask, sell at b's bid. Returns zero when either relevant price is
// missing, so a silent venue reads as "no spread computable". Both the
// live detector and the simulation engine derive their threshold
// checks from this one formula.
func RawSpread(a, b model.PriceTick) float64 {
	if a.Ask <= 0 || b.Bid <= 0 {
		return 0
	}
	return (b.Bid - a.Ask) / a.Ask * 100
}

// ComputeSpread derives the spread result from the latest tick pair.
// The spread is reported as an absolute percentage; profitability
// follows the sign of the raw spread against the live threshold.
func ComputeSpread(a, b model.PriceTick) SpreadResult {
	raw := RawSpread(a, b)
	return SpreadResult{
		Spread:     math.Abs(raw),
		Profitable: raw > SpreadThreshold,
	}
}
