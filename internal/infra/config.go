package infra

import (
	"errors"
	"fmt"
	"os"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every application setting. LoadConfig reads it from YAML and
// then applies environment-variable overrides for deploy-specific values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Binance struct {
			WSURL           string   `yaml:"ws_url"`
			RestURL         string   `yaml:"rest_url"`
			Symbols         []string `yaml:"symbols"`
			Intervals       []string `yaml:"intervals"`
			FallbackSymbols []string `yaml:"fallback_symbols"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Predictor PredictorConfig `yaml:"predictor"`

	Orders struct {
		ExpiryMinutes    int    `yaml:"expiry_minutes"`
		ClosedHistoryCap int    `yaml:"closed_history_cap"`
		DBPath           string `yaml:"db_path"`
	} `yaml:"orders"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// PredictorConfig drives the prediction client and the scan loop timing.
type PredictorConfig struct {
	URL              string          `yaml:"url"`
	Interval         string          `yaml:"interval"`
	WinRateThreshold decimal.Decimal `yaml:"win_rate_threshold"`
	SymbolDelaySec   int             `yaml:"symbol_delay_sec"`
	CycleDelaySec    int             `yaml:"cycle_delay_sec"`
	ReadinessPollSec int             `yaml:"readiness_poll_sec"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills fields the YAML may omit.
func (c *Config) applyDefaults() {
	if c.Predictor.Interval == "" {
		c.Predictor.Interval = "5m"
	}
	if c.Predictor.WinRateThreshold.IsZero() {
		c.Predictor.WinRateThreshold = decimal.NewFromInt(70)
	}
	if c.Predictor.SymbolDelaySec == 0 {
		c.Predictor.SymbolDelaySec = 2
	}
	if c.Predictor.CycleDelaySec == 0 {
		c.Predictor.CycleDelaySec = 300
	}
	if c.Predictor.ReadinessPollSec == 0 {
		c.Predictor.ReadinessPollSec = 10
	}
	if c.Orders.ExpiryMinutes == 0 {
		c.Orders.ExpiryMinutes = 20
	}
	if c.Orders.ClosedHistoryCap == 0 {
		c.Orders.ClosedHistoryCap = 100
	}
	if c.Orders.DBPath == "" {
		c.Orders.DBPath = "data/scalp.db"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.API.Binance.WSURL == "" || (!hasPrefix(c.API.Binance.WSURL, "ws://") && !hasPrefix(c.API.Binance.WSURL, "wss://")) {
		return &domain.ConfigError{Field: "api.binance.ws_url",
			Err: fmt.Errorf("invalid WebSocket URL: %q", c.API.Binance.WSURL)}
	}
	if len(c.API.Binance.Symbols) == 0 {
		return &domain.ConfigError{Field: "api.binance.symbols",
			Err: errors.New("at least one stream symbol is required")}
	}
	if len(c.API.Binance.Intervals) == 0 {
		return &domain.ConfigError{Field: "api.binance.intervals",
			Err: errors.New("at least one kline interval is required")}
	}
	if c.Predictor.URL == "" {
		return &domain.ConfigError{Field: "predictor.url",
			Err: errors.New("predictor URL is required")}
	}
	if c.Predictor.WinRateThreshold.IsNegative() {
		return &domain.ConfigError{Field: "predictor.win_rate_threshold",
			Err: errors.New("must not be negative")}
	}
	if c.Orders.ExpiryMinutes <= 0 {
		return &domain.ConfigError{Field: "orders.expiry_minutes",
			Err: errors.New("must be positive")}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("SCALP_PREDICTOR_URL"); url != "" {
		cfg.Predictor.URL = url
	}
	if path := os.Getenv("SCALP_DB_PATH"); path != "" {
		cfg.Orders.DBPath = path
	}
	if url := os.Getenv("SCALP_BINANCE_WS_URL"); url != "" {
		cfg.API.Binance.WSURL = url
	}
}
