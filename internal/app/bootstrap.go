package app

import (
	"log/slog"
	"time"

	"scalp_go/internal/infra"
	"scalp_go/internal/infra/storage"
	"scalp_go/internal/ledger"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Ledger  *ledger.Ledger
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, ledger)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Scalp Go...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Orders.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Orders.DBPath))

	// 4. Rebuild the order ledger from persisted state
	l, err := ledger.NewLedger(store,
		time.Duration(cfg.Orders.ExpiryMinutes)*time.Minute,
		cfg.Orders.ClosedHistoryCap)
	if err != nil {
		return err
	}
	b.Ledger = l
	slog.Info("✅ Order ledger ready")

	return nil
}
