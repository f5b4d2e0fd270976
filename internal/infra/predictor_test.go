package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestPredictorClient_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/predict/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"symbol": "BTCUSDT",
			"prediction": {
				"trade_setup": {
					"direction": "LONG (Mua)",
					"entry_price": 50000.1234,
					"take_profit_price": 51000.5,
					"stop_loss_price": 49500.25,
					"estimated_win_rate": 72.5
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewPredictorClient(server.URL, time.Second)
	client.ready.Store(true)
	setup, err := client.Predict(context.Background(), "BTCUSDT", "5m")
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if setup.Direction != domain.DirectionLong {
		t.Errorf("direction = %s, want LONG", setup.Direction)
	}
	if !setup.EntryPrice.Equal(decimal.NewFromFloat(50000.1234)) {
		t.Errorf("entry = %v, want 50000.1234", setup.EntryPrice)
	}
	if !setup.EstimatedWinRate.Equal(decimal.NewFromFloat(72.5)) {
		t.Errorf("win rate = %v, want 72.5", setup.EstimatedWinRate)
	}
}

func TestPredictorClient_NoSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol": "XRPUSDT", "prediction": {"error": "Model training"}}`))
	}))
	defer server.Close()

	client := NewPredictorClient(server.URL, time.Second)
	client.ready.Store(true)
	_, err := client.Predict(context.Background(), "XRPUSDT", "5m")
	if !errors.Is(err, domain.ErrNoSignal) {
		t.Errorf("expected ErrNoSignal, got %v", err)
	}
}

func TestPredictorClient_ShortDirection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"symbol": "ETHUSDT",
			"prediction": {
				"trade_setup": {
					"direction": "SHORT (Ban)",
					"entry_price": 3000,
					"take_profit_price": 2900,
					"stop_loss_price": 3050,
					"estimated_win_rate": 71
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewPredictorClient(server.URL, time.Second)
	client.ready.Store(true)
	setup, err := client.Predict(context.Background(), "ETHUSDT", "5m")
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if setup.Direction != domain.DirectionShort {
		t.Errorf("direction = %s, want SHORT", setup.Direction)
	}
}

func TestPredictorClient_Readiness(t *testing.T) {
	var ready atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ready" {
			http.NotFound(w, r)
			return
		}
		if ready.Load() {
			w.Write([]byte(`{"ready": true}`))
		} else {
			w.Write([]byte(`{"ready": false}`))
		}
	}))
	defer server.Close()

	client := NewPredictorClient(server.URL, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer client.Stop()

	if client.Ready() {
		t.Error("should not be ready while model is training")
	}

	ready.Store(true)
	deadline := time.Now().Add(2 * time.Second)
	for !client.Ready() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !client.Ready() {
		t.Error("readiness flag should flip after the service reports ready")
	}
}

func TestPredictorClient_NotReady(t *testing.T) {
	client := NewPredictorClient("http://localhost:1", time.Second)
	_, err := client.Predict(context.Background(), "BTCUSDT", "5m")
	if !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("expected ErrNotReady before any successful probe, got %v", err)
	}
}
