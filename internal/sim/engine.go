package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"sniper/internal/arbitrage"
	"sniper/internal/model"
)

const (
	tickInterval    = 2 * time.Second
	signalCooldown  = 8 * time.Second
	opportunityProb = 0.15
	basePrice       = 50000.0
)

// Broadcaster is the hub-facing output of the engine.
type Broadcaster interface {
	Publish(event string, data any)
}

// BusPublisher is the bus-facing output of the engine.
type BusPublisher interface {
	PublishTick(ctx context.Context, tick model.PriceTick) error
	PublishSignal(ctx context.Context, message string) error
}

// Engine generates a correlated random-walk tick pair on a fixed
// interval and periodically synthesizes a signal, order and metrics
// bundle. It publishes through the same paths live data takes, so
// downstream consumers cannot tell simulation from live operation.
type Engine struct {
	logger   *slog.Logger
	hub      Broadcaster
	bus      BusPublisher
	rng      *rand.Rand
	now      func() time.Time
	interval time.Duration
	cooldown time.Duration

	binancePrice float64
	krakenPrice  float64
	lastSignal   time.Time

	opportunities int64
	orders        int64
	totalProfit   float64
	latencySum    float64
	latencyCount  int64
}

// New creates a simulation engine publishing to the given hub and bus.
func New(hub Broadcaster, bus BusPublisher, logger *slog.Logger) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Engine{
		logger:       logger,
		hub:          hub,
		bus:          bus,
		rng:          rng,
		now:          time.Now,
		interval:     tickInterval,
		cooldown:     signalCooldown,
		binancePrice: basePrice + rng.Float64()*100,
		krakenPrice:  basePrice + rng.Float64()*100,
	}
}

// Run generates ticks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("sim: simulation mode active, generating local data")
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

// step advances both venue prices one tick and publishes the results.
func (e *Engine) step(ctx context.Context) {
	e.binancePrice += (e.rng.Float64() - 0.5) * 20
	e.krakenPrice += (e.rng.Float64() - 0.5) * 20

	// Occasionally force an arbitrage-sized gap between the venues.
	if e.rng.Float64() < opportunityProb {
		e.krakenPrice = e.binancePrice + 25 + e.rng.Float64()*30
	}

	ts := e.now().UnixMilli()
	bin := model.PriceTick{
		Exchange:  "binance",
		Timestamp: ts,
		Bid:       e.binancePrice - e.rng.Float64()*2,
		Ask:       e.binancePrice + e.rng.Float64()*2,
	}
	kra := model.PriceTick{
		Exchange:  "kraken",
		Timestamp: ts,
		Bid:       e.krakenPrice - e.rng.Float64()*2,
		Ask:       e.krakenPrice + e.rng.Float64()*2,
	}

	e.hub.Publish("price-update", bin)
	e.hub.Publish("price-update", kra)
	if err := e.bus.PublishTick(ctx, bin); err != nil {
		e.logger.Warn("sim: failed to publish tick to bus", "error", err)
	}
	if err := e.bus.PublishTick(ctx, kra); err != nil {
		e.logger.Warn("sim: failed to publish tick to bus", "error", err)
	}

	e.maybeSignal(ctx, bin, kra)
}

// maybeSignal emits a signal, order and metrics bundle when the
// cooldown has elapsed and the instantaneous spread clears the
// simulation threshold.
func (e *Engine) maybeSignal(ctx context.Context, bin, kra model.PriceTick) {
	now := e.now()
	if now.Sub(e.lastSignal) < e.cooldown {
		return
	}

	spread := arbitrage.RawSpread(bin, kra)
	if spread <= arbitrage.SimSpreadThreshold {
		return
	}

	ts := now.UnixMilli()
	execMS := 1 + e.rng.Float64()*3
	order := arbitrage.NewOrder(fmt.Sprintf("ORD-%d", ts), ts, "binance", "kraken", bin.Ask, kra.Bid, execMS)
	message := arbitrage.FormatSignal("binance", "kraken", bin.Ask, kra.Bid, spread, order.NetProfit)

	e.opportunities++
	e.orders++
	e.totalProfit += order.NetProfit
	e.latencySum += execMS
	e.latencyCount++
	metrics := model.Metrics{
		AvgLatencyMS:       e.latencySum / float64(e.latencyCount),
		LastLatencyMS:      execMS,
		ProcessTimeMS:      0.5 + e.rng.Float64(),
		TotalOpportunities: e.opportunities,
		TotalOrders:        e.orders,
		TotalProfit:        e.totalProfit,
	}

	e.hub.Publish("signal", model.Signal{Time: ts, Message: message})
	e.hub.Publish("order-executed", order)
	e.hub.Publish("metrics-update", metrics)
	if err := e.bus.PublishSignal(ctx, message); err != nil {
		e.logger.Warn("sim: failed to publish signal to bus", "error", err)
	}

	e.lastSignal = now
	e.logger.Info("sim: signal emitted", "spread", spread, "net_profit", order.NetProfit)
}
