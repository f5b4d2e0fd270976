// Package scanner drives the autonomous signal loop: it walks the symbol
// universe, asks the prediction service for a setup on each symbol, and
// places a paper order whenever the estimated win rate clears the threshold.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scalp_go/internal/domain"
	"scalp_go/internal/infra"

	"github.com/shopspring/decimal"
)

// OrderOpener is the slice of the ledger the scanner needs.
type OrderOpener interface {
	OpenNewOrder(symbol string, setup domain.TradeSetup) error
}

// Scanner runs the prediction cycle in its own goroutine.
type Scanner struct {
	predictor domain.Predictor
	symbols   domain.SymbolProvider
	orders    OrderOpener

	interval      string
	threshold     decimal.Decimal
	symbolDelay   time.Duration
	cycleDelay    time.Duration
	readinessPoll time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scanner from the predictor section of the config.
func New(predictor domain.Predictor, symbols domain.SymbolProvider, orders OrderOpener, cfg infra.PredictorConfig) *Scanner {
	return &Scanner{
		predictor:     predictor,
		symbols:       symbols,
		orders:        orders,
		interval:      cfg.Interval,
		threshold:     cfg.WinRateThreshold,
		symbolDelay:   time.Duration(cfg.SymbolDelaySec) * time.Second,
		cycleDelay:    time.Duration(cfg.CycleDelaySec) * time.Second,
		readinessPoll: time.Duration(cfg.ReadinessPollSec) * time.Second,
	}
}

// Start launches the scan loop. It returns immediately; the loop runs until
// the context is canceled or Stop is called.
func (s *Scanner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the scan loop and waits for it to exit.
func (s *Scanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scanner) run(ctx context.Context) {
	defer s.wg.Done()

	if !s.waitUntilReady(ctx) {
		return
	}

	universe, err := s.symbols.ListActiveSymbols(ctx)
	if err != nil {
		slog.Error("failed to load symbol universe, scanner exiting", "error", err)
		return
	}
	slog.Info("scanner started", "symbols", len(universe), "interval", s.interval,
		"win_rate_threshold", s.threshold.String())

	for {
		s.scanCycle(ctx, universe)
		if !sleepWithContext(ctx, s.cycleDelay) {
			return
		}
	}
}

// waitUntilReady blocks until the prediction model reports ready. Returns
// false if the context was canceled while waiting.
func (s *Scanner) waitUntilReady(ctx context.Context) bool {
	for !s.predictor.Ready() {
		slog.Info("prediction model not ready, waiting", "poll_interval", s.readinessPoll)
		if !sleepWithContext(ctx, s.readinessPoll) {
			return false
		}
	}
	return true
}

func (s *Scanner) scanCycle(ctx context.Context, universe []string) {
	for i, symbol := range universe {
		if ctx.Err() != nil {
			return
		}
		s.scanSymbol(ctx, symbol)

		if i < len(universe)-1 {
			if !sleepWithContext(ctx, s.symbolDelay) {
				return
			}
		}
	}
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) {
	setup, err := s.predictor.Predict(ctx, symbol, s.interval)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoSignal), errors.Is(err, domain.ErrNotReady), ctx.Err() != nil:
			// Expected during normal operation; the next cycle retries.
		case domain.IsRetriable(err):
			slog.Warn("prediction failed", "symbol", symbol, "error", err)
		default:
			slog.Error("prediction failed", "symbol", symbol, "error", err)
		}
		return
	}

	if setup.EstimatedWinRate.LessThan(s.threshold) {
		slog.Debug("signal below threshold",
			"symbol", symbol,
			"direction", setup.Direction,
			"win_rate", setup.EstimatedWinRate.String())
		return
	}

	if err := s.orders.OpenNewOrder(symbol, *setup); err != nil {
		slog.Error("failed to place scanner order", "symbol", symbol, "error", err)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
