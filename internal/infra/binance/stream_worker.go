package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scalp_go/internal/domain"
	"scalp_go/internal/infra"

	"github.com/gorilla/websocket"
)

// StreamWorker owns the combined market-data WebSocket. It multiplexes the
// configured kline streams plus the all-market ticker array over a single
// connection, decodes frames into TickEvents and invokes the registered
// handler synchronously for each one. On any connection error it waits a
// fixed backoff and reconnects with the same stream set.
type StreamWorker struct {
	wsURL   string
	streams []string
	handler domain.TickHandler
	backoff time.Duration

	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewStreamWorker builds a worker subscribed to symbols x intervals klines
// plus the global mini-ticker array.
func NewStreamWorker(wsURL string, symbols, intervals []string, handler domain.TickHandler) *StreamWorker {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	streams := make([]string, 0, len(symbols)*len(intervals)+1)
	for _, sym := range symbols {
		lower := strings.ToLower(sym)
		for _, iv := range intervals {
			streams = append(streams, lower+"@kline_"+iv)
		}
	}
	streams = append(streams, allTickerStream)

	return &StreamWorker{
		wsURL:   wsURL,
		streams: streams,
		handler: handler,
		backoff: reconnectDelay,
	}
}

func (w *StreamWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *StreamWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Market stream connection failed", slog.Any("error", err))
			infra.GlobalMetrics.RecordReconnect()
			if !sleepWithContext(ctx, w.backoff) {
				return
			}
			continue
		}

		w.readLoop(ctx)

		// Connection dropped mid-stream. The stream set is encoded in the
		// connect URL, so the retry resubscribes without side effects.
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Market stream disconnected, reconnecting", slog.Duration("backoff", w.backoff))
		infra.GlobalMetrics.RecordReconnect()
		if !sleepWithContext(ctx, w.backoff) {
			return
		}
	}
}

func (w *StreamWorker) connect(ctx context.Context) error {
	url := w.wsURL + "?streams=" + strings.Join(w.streams, "/")
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	infra.GlobalMetrics.SetStreamConnected(true)
	slog.Info("Market stream connected", slog.Int("streams", len(w.streams)))
	return nil
}

func (w *StreamWorker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.closeConnection()
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

// handleMessage decodes one combined-stream frame. Malformed messages are
// dropped without touching the connection.
func (w *StreamWorker) handleMessage(msg []byte) {
	var frame combinedFrame
	if err := json.Unmarshal(msg, &frame); err != nil || len(frame.Data) == 0 {
		slog.Debug("Dropping undecodable stream frame", slog.Any("error", err))
		infra.GlobalMetrics.RecordDecodeDrop()
		return
	}

	switch {
	case strings.Contains(frame.Stream, "@kline_"):
		w.handleKline(frame.Data)
	case strings.HasSuffix(frame.Stream, "@arr"):
		w.handleTickerArray(frame.Data)
	default:
		// Structural/meta messages are ignored.
	}
}

func (w *StreamWorker) handleKline(data json.RawMessage) {
	var payload klinePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Debug("Dropping malformed kline message", slog.Any("error", err))
		infra.GlobalMetrics.RecordDecodeDrop()
		return
	}

	ev, err := payload.toEvent()
	if err != nil {
		slog.Debug("Dropping kline message", slog.Any("error", err))
		infra.GlobalMetrics.RecordDecodeDrop()
		return
	}
	w.handler(ev)
}

func (w *StreamWorker) handleTickerArray(data json.RawMessage) {
	var tickers []miniTicker
	if err := json.Unmarshal(data, &tickers); err != nil {
		slog.Debug("Dropping malformed ticker array", slog.Any("error", err))
		infra.GlobalMetrics.RecordDecodeDrop()
		return
	}

	// One event per array element; bad elements drop individually.
	for i := range tickers {
		ev, err := tickers[i].toEvent()
		if err != nil {
			infra.GlobalMetrics.RecordDecodeDrop()
			continue
		}
		w.handler(ev)
	}
}

func (w *StreamWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *StreamWorker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		w.connected = false
		infra.GlobalMetrics.SetStreamConnected(false)
	}
}

func (w *StreamWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}

// sleepWithContext waits for d unless ctx is cancelled first.
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
