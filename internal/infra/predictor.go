package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
)

// predictionResponse mirrors the prediction service payload. The service
// reports either a trade setup or an error string (model still training,
// insufficient candles, ...).
type predictionResponse struct {
	Symbol     string `json:"symbol"`
	Prediction struct {
		Error      string         `json:"error"`
		TradeSetup *tradeSetupDTO `json:"trade_setup"`
	} `json:"prediction"`
}

type tradeSetupDTO struct {
	Direction        string  `json:"direction"`
	EntryPrice       float64 `json:"entry_price"`
	TakeProfitPrice  float64 `json:"take_profit_price"`
	StopLossPrice    float64 `json:"stop_loss_price"`
	EstimatedWinRate float64 `json:"estimated_win_rate"`
}

type readinessResponse struct {
	Ready bool `json:"ready"`
}

// PredictorClient talks to the prediction service over HTTP. It keeps a
// cached readiness flag refreshed by a background poll so the scanner can
// check Ready() without a network round trip.
type PredictorClient struct {
	baseURL      string
	httpClient   *http.Client
	ready        atomic.Bool
	pollInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewPredictorClient creates a predictor client for the given service URL.
func NewPredictorClient(baseURL string, pollInterval time.Duration) *PredictorClient {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &PredictorClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Start launches the readiness polling loop.
func (c *PredictorClient) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Initial probe so Ready() is meaningful immediately
	c.probeReadiness(ctx)

	c.wg.Add(1)
	go c.pollLoop(ctx)
	return nil
}

// Stop cancels the polling loop and waits for it to finish.
func (c *PredictorClient) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Ready reports whether the prediction model accepted the last health probe.
func (c *PredictorClient) Ready() bool {
	return c.ready.Load()
}

func (c *PredictorClient) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probeReadiness(ctx)
		}
	}
}

func (c *PredictorClient) probeReadiness(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/ready", nil)
	if err != nil {
		c.ready.Store(false)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Predictor readiness probe failed", slog.Any("error", err))
		}
		c.ready.Store(false)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.ready.Store(false)
		return
	}

	var body readinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.ready.Store(false)
		return
	}
	c.ready.Store(body.Ready)
}

// Predict requests a trade setup for the symbol. Returns domain.ErrNoSignal
// when the model has nothing usable, domain.ErrNotReady while it is warming
// up, or a network error otherwise.
func (c *PredictorClient) Predict(ctx context.Context, symbol, interval string) (*domain.TradeSetup, error) {
	if !c.Ready() {
		return nil, domain.ErrNotReady
	}

	endpoint := fmt.Sprintf("%s/api/v1/predict/%s?interval=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("predict", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewNetworkError("predict",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError("read", err)
	}

	var body predictionResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	if body.Prediction.Error != "" {
		return nil, domain.ErrNoSignal
	}
	setup := body.Prediction.TradeSetup
	if setup == nil {
		return nil, domain.ErrNoSignal
	}

	return &domain.TradeSetup{
		Direction:        normalizeDirection(setup.Direction),
		EntryPrice:       decimal.NewFromFloat(setup.EntryPrice),
		TakeProfitPrice:  decimal.NewFromFloat(setup.TakeProfitPrice),
		StopLossPrice:    decimal.NewFromFloat(setup.StopLossPrice),
		EstimatedWinRate: decimal.NewFromFloat(setup.EstimatedWinRate),
	}, nil
}

// normalizeDirection maps the service's display strings (e.g. "LONG (Mua)")
// to the canonical direction constants.
func normalizeDirection(s string) string {
	if strings.Contains(strings.ToUpper(s), domain.DirectionShort) {
		return domain.DirectionShort
	}
	return domain.DirectionLong
}
