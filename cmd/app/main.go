package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scalp_go/internal/app"
	"scalp_go/internal/broadcast"
	"scalp_go/internal/domain"
	"scalp_go/internal/engine"
	"scalp_go/internal/infra"
	"scalp_go/internal/infra/binance"
	"scalp_go/internal/scanner"
	"scalp_go/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Broadcaster + Market State + Transition Engine
	hub := broadcast.NewHub()
	market := service.NewMarketService(func() int64 { return time.Now().Unix() })
	eng := engine.New(bootstrap.Ledger, hub, market)

	hub.Subscribe(func(ev domain.TickEvent) error {
		slog.Debug("kline closed",
			slog.String("symbol", ev.Symbol),
			slog.String("interval", ev.Interval),
			slog.String("close", ev.Close.String()))
		return nil
	})

	// 5. Warm the market state from REST so snapshots are usable before the
	// first live candle closes
	go warmMarketState(ctx, cfg, market)

	// 6. Market Data Stream Worker
	worker := binance.NewStreamWorker(
		cfg.API.Binance.WSURL,
		cfg.API.Binance.Symbols,
		cfg.API.Binance.Intervals,
		eng.HandleTick,
	)
	if err := worker.Connect(ctx); err != nil {
		slog.Error("Failed to connect Binance stream", slog.Any("error", err))
	}
	defer worker.Disconnect()
	slog.InfoContext(ctx, "✅ Binance stream worker started",
		slog.Int("symbols", len(cfg.API.Binance.Symbols)))

	// 7. Prediction Client + Autonomous Scanner
	predictor := infra.NewPredictorClient(cfg.Predictor.URL,
		time.Duration(cfg.Predictor.ReadinessPollSec)*time.Second)
	if err := predictor.Start(ctx); err != nil {
		slog.Error("Failed to start predictor client", slog.Any("error", err))
	}
	defer predictor.Stop()

	universe := binance.NewSymbolUniverse(cfg.API.Binance.RestURL, cfg.API.Binance.FallbackSymbols)

	scan := scanner.New(predictor, universe, bootstrap.Ledger, cfg.Predictor)
	scan.Start(ctx)
	defer scan.Stop()
	slog.InfoContext(ctx, "✅ Autonomous scanner started",
		slog.String("threshold", cfg.Predictor.WinRateThreshold.String()))

	slog.InfoContext(ctx, "✨ Scalp Go fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}

// warmMarketState seeds the per-symbol snapshots with the most recent closed
// candle for each configured stream symbol.
func warmMarketState(ctx context.Context, cfg *infra.Config, market *service.MarketService) {
	client := binance.NewClient(cfg.API.Binance.RestURL)
	interval := cfg.API.Binance.Intervals[0]

	for _, symbol := range cfg.API.Binance.Symbols {
		klines, err := client.HistoricalKlines(ctx, symbol, interval, 2)
		if err != nil {
			slog.Warn("Market warm-up failed", slog.String("symbol", symbol), slog.Any("error", err))
			continue
		}
		if len(klines) == 0 {
			continue
		}
		k := klines[0] // oldest of the two is guaranteed closed
		market.Update(domain.TickEvent{
			Kind:        domain.TickKindKline,
			Symbol:      symbol,
			Interval:    interval,
			Open:        k.Open,
			High:        k.High,
			Low:         k.Low,
			Close:       k.Close,
			BarOpenTime: k.Time,
			IsFinal:     true,
		})
	}
}
