package exchange

import (
	"fmt"
	"log/slog"

	"sniper/internal/config"
)

// NewClient creates a venue client based on the given name and
// configuration.
func NewClient(name string, logger *slog.Logger, cfg config.ExchangeConfig) (Client, error) {
	switch name {
	case "binance":
		return NewBinanceClient(logger, cfg.WSURL), nil
	case "kraken":
		return NewKrakenClient(logger, cfg.WSURL), nil
	default:
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}
}
