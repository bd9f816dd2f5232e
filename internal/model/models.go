package model

// PriceTick is the canonical best-bid/best-ask quote emitted by every
// price source (live venue adapters and the simulation engine alike).
// The JSON tags are the wire format shared with the dashboard, the bus
// and the downstream worker.
type PriceTick struct {
	Exchange  string  `json:"exchange"`
	Timestamp int64   `json:"timestamp"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidQty    float64 `json:"bidQty,omitempty"`
	AskQty    float64 `json:"askQty,omitempty"`
}

// Valid reports whether the tick carries usable prices. Ticks failing
// this check never leave the normalizer.
func (t PriceTick) Valid() bool {
	return t.Bid > 0 && t.Ask > 0
}

// Signal is a free-text arbitrage notification wrapped with the time it
// was received or generated.
type Signal struct {
	Time    int64  `json:"time"`
	Message string `json:"message"`
}

// Order represents a simulated or manually requested arbitrage
// execution. Orders are immutable once created.
type Order struct {
	ID              string  `json:"id"`
	Timestamp       int64   `json:"timestamp"`
	BuyExchange     string  `json:"buy_exchange"`
	SellExchange    string  `json:"sell_exchange"`
	BuyPrice        float64 `json:"buy_price"`
	SellPrice       float64 `json:"sell_price"`
	Amount          float64 `json:"amount"`
	GrossProfit     float64 `json:"gross_profit"`
	Fees            float64 `json:"fees"`
	NetProfit       float64 `json:"net_profit"`
	ProfitPct       float64 `json:"profit_pct"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
	Status          string  `json:"status"`
	Manual          bool    `json:"manual,omitempty"`
}

// Metrics is the latest performance snapshot. Only the most recent one
// matters; each update replaces the previous snapshot.
type Metrics struct {
	AvgLatencyMS       float64 `json:"avg_latency_ms"`
	LastLatencyMS      float64 `json:"last_latency_ms"`
	ProcessTimeMS      float64 `json:"process_time_ms,omitempty"`
	TotalOpportunities int64   `json:"total_opportunities"`
	TotalOrders        int64   `json:"total_orders"`
	TotalProfit        float64 `json:"total_profit"`
	MessagesProcessed  int64   `json:"messages_processed,omitempty"`
}

// ManualOrderRequest is the one observer-originated event: a request to
// execute the trade described by a previously displayed signal message.
type ManualOrderRequest struct {
	Message      string `json:"message"`
	Time         int64  `json:"time"`
	BuyExchange  string `json:"buyExchange"`
	SellExchange string `json:"sellExchange"`
}
