package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sniper/internal/config"
	"sniper/internal/exchange"
	"sniper/internal/hub"
	"sniper/internal/model"
	"sniper/internal/push"
	"sniper/internal/relay"
	"sniper/internal/sim"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New(logger)

	busRelay := relay.New(cfg.Redis.Addr(), h, logger)
	defer busRelay.Close()
	go func() {
		if err := busRelay.Run(ctx); err != nil {
			logger.Error("relay stopped", "error", err)
		}
	}()

	if cfg.Mode.Simulate {
		publisher := relay.NewPublisher(cfg.Redis.Addr())
		defer publisher.Close()
		engine := sim.New(h, publisher, logger)
		go engine.Run(ctx)
	} else {
		if err := startLive(ctx, cfg, h, logger); err != nil {
			log.Fatalf("cannot start live ingestion: %v", err)
		}
	}

	go reportStats(ctx, h, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("arbitrage sniper started",
		"port", cfg.Server.Port,
		"simulate", cfg.Mode.Simulate,
		"redis", cfg.Redis.Addr(),
		"push", cfg.Push.Address,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// startLive dials the downstream push channel and starts one streaming
// adapter per venue. Every valid tick goes to the delivery queue and to
// the observer hub.
func startLive(ctx context.Context, cfg config.Config, h *hub.Hub, logger *slog.Logger) error {
	sender, err := push.DialPush(ctx, cfg.Push.Address, logger)
	if err != nil {
		return err
	}
	queue := push.NewQueue(logger, sender)

	ticks := make(chan model.PriceTick, 256)
	for name, exCfg := range cfg.Exchanges {
		client, err := exchange.NewClient(name, logger, exCfg)
		if err != nil {
			return err
		}
		go client.StartStream(ctx, ticks, exCfg.Pair)
	}

	go func() {
		defer sender.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticks:
				queue.Enqueue(tick)
				h.Publish("price-update", tick)
			}
		}
	}()
	return nil
}

// reportStats logs operational counters every 30 seconds, skipping
// idle periods.
func reportStats(ctx context.Context, h *hub.Hub, logger *slog.Logger) {
	start := time.Now()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observers := h.ConnectedObservers()
			published := h.EventsPublished()
			if observers > 0 || published > 0 {
				logger.Info("stats",
					"observers", observers,
					"events_published", published,
					"uptime_s", int(time.Since(start).Seconds()),
				)
			}
		}
	}
}
