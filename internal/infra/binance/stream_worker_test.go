package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scalp_go/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func collectWorker(t *testing.T) (*StreamWorker, *[]domain.TickEvent, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	events := &[]domain.TickEvent{}
	w := NewStreamWorker("", []string{"btcusdt"}, []string{"5m"}, func(ev domain.TickEvent) {
		mu.Lock()
		*events = append(*events, ev)
		mu.Unlock()
	})
	return w, events, &mu
}

func TestStreamWorker_HandleKlineFrame(t *testing.T) {
	w, events, _ := collectWorker(t)

	msg := []byte(`{
		"stream": "btcusdt@kline_5m",
		"data": {
			"e": "kline",
			"s": "BTCUSDT",
			"k": {
				"t": 1700000100000,
				"i": "5m",
				"o": "42000.10",
				"h": "42100.00",
				"l": "41900.50",
				"c": "42050.25",
				"x": true
			}
		}
	}`)
	w.handleMessage(msg)

	if len(*events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Kind != domain.TickKindKline {
		t.Errorf("kind = %s, want kline", ev.Kind)
	}
	if ev.Symbol != "BTCUSDT" || ev.Interval != "5m" {
		t.Errorf("symbol/interval = %s/%s", ev.Symbol, ev.Interval)
	}
	if !ev.Close.Equal(decimal.NewFromFloat(42050.25)) {
		t.Errorf("close = %v, want 42050.25", ev.Close)
	}
	if ev.BarOpenTime != 1700000100 {
		t.Errorf("bar open time = %d, want seconds", ev.BarOpenTime)
	}
	if !ev.IsFinal {
		t.Error("is_final should carry through")
	}
}

func TestStreamWorker_HandleTickerArray(t *testing.T) {
	w, events, _ := collectWorker(t)

	msg := []byte(`{
		"stream": "!miniTicker@arr",
		"data": [
			{"e": "24hrMiniTicker", "s": "BTCUSDT", "c": "100.5"},
			{"e": "24hrMiniTicker", "s": "ETHUSDT", "c": "3000"}
		]
	}`)
	w.handleMessage(msg)

	if len(*events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(*events))
	}
	if (*events)[0].Kind != domain.TickKindTicker || (*events)[0].Symbol != "BTCUSDT" {
		t.Errorf("unexpected first event: %+v", (*events)[0])
	}
	if p, ok := (*events)[0].Price(); !ok || !p.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("price = %v/%v, want 100.5/true", p, ok)
	}
}

func TestStreamWorker_DropsMalformedMessages(t *testing.T) {
	w, events, _ := collectWorker(t)

	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"stream": "btcusdt@kline_5m"}`),
		[]byte(`{"stream": "btcusdt@kline_5m", "data": {"s": "BTCUSDT", "k": {"i": "5m", "o": "bad", "h": "1", "l": "1", "c": "1"}}}`),
		[]byte(`{"stream": "!miniTicker@arr", "data": {"not": "an array"}}`),
	}
	for _, msg := range cases {
		w.handleMessage(msg)
	}

	if len(*events) != 0 {
		t.Errorf("malformed messages must be dropped, got %d events", len(*events))
	}
}

func TestStreamWorker_DropsBadTickerElementOnly(t *testing.T) {
	w, events, _ := collectWorker(t)

	msg := []byte(`{
		"stream": "!miniTicker@arr",
		"data": [
			{"s": "BTCUSDT", "c": "garbage"},
			{"s": "ETHUSDT", "c": "3000"}
		]
	}`)
	w.handleMessage(msg)

	if len(*events) != 1 {
		t.Fatalf("expected 1 surviving event, got %d", len(*events))
	}
	if (*events)[0].Symbol != "ETHUSDT" {
		t.Errorf("surviving event = %+v", (*events)[0])
	}
}

func TestStreamWorker_IgnoresMetaStreams(t *testing.T) {
	w, events, _ := collectWorker(t)

	w.handleMessage([]byte(`{"stream": "btcusdt@depth", "data": {"bids": []}}`))

	if len(*events) != 0 {
		t.Errorf("non-kline non-ticker streams must be ignored, got %d events", len(*events))
	}
}

// TestStreamWorker_Reconnect drives the worker against a local server that
// drops the first connection after one frame, and verifies delivery resumes
// on the second connection.
func TestStreamWorker_Reconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var connCount int
	var connMu sync.Mutex

	frame := `{"stream": "!miniTicker@arr", "data": [{"s": "BTCUSDT", "c": "100.5"}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connMu.Lock()
		connCount++
		n := connCount
		connMu.Unlock()

		conn.WriteMessage(websocket.TextMessage, []byte(frame))
		if n == 1 {
			conn.Close() // Force a mid-stream disconnect
			return
		}
		// Second connection stays up until the test ends
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	var mu sync.Mutex
	var events []domain.TickEvent
	worker := NewStreamWorker(wsURL, []string{"btcusdt"}, []string{"5m"}, func(ev domain.TickEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	worker.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := worker.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer worker.Disconnect()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("expected events from both connections, got %d", len(events))
	}
	connMu.Lock()
	defer connMu.Unlock()
	if connCount < 2 {
		t.Errorf("expected a reconnect, got %d connections", connCount)
	}
}
