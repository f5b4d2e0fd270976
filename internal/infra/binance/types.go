package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// DefaultWSURL is the Binance USDT-futures combined stream endpoint.
	DefaultWSURL = "wss://fstream.binance.com/stream"

	// allTickerStream is the all-market mini ticker array stream.
	allTickerStream = "!miniTicker@arr"

	reconnectDelay   = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	readTimeout      = 75 * time.Second
)

// combinedFrame is the envelope of every combined-stream message:
// {"stream": "<name>", "data": <payload>}
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// klinePayload is a single kline stream message.
type klinePayload struct {
	EventType string    `json:"e"`
	Symbol    string    `json:"s"`
	Kline     klineData `json:"k"`
}

type klineData struct {
	StartTime int64  `json:"t"` // Unix milliseconds
	Interval  string `json:"i"`
	Open      string `json:"o"`
	Close     string `json:"c"`
	High      string `json:"h"`
	Low       string `json:"l"`
	IsFinal   bool   `json:"x"`
}

// miniTicker is one element of the all-market ticker array.
type miniTicker struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

func (p *klinePayload) toEvent() (domain.TickEvent, error) {
	if p.Symbol == "" || p.Kline.Interval == "" {
		return domain.TickEvent{}, fmt.Errorf("kline payload missing symbol or interval")
	}

	open, err := decimal.NewFromString(p.Kline.Open)
	if err != nil {
		return domain.TickEvent{}, fmt.Errorf("parse open %q: %w", p.Kline.Open, err)
	}
	high, err := decimal.NewFromString(p.Kline.High)
	if err != nil {
		return domain.TickEvent{}, fmt.Errorf("parse high %q: %w", p.Kline.High, err)
	}
	low, err := decimal.NewFromString(p.Kline.Low)
	if err != nil {
		return domain.TickEvent{}, fmt.Errorf("parse low %q: %w", p.Kline.Low, err)
	}
	closePrice, err := decimal.NewFromString(p.Kline.Close)
	if err != nil {
		return domain.TickEvent{}, fmt.Errorf("parse close %q: %w", p.Kline.Close, err)
	}

	return domain.TickEvent{
		Kind:        domain.TickKindKline,
		Symbol:      p.Symbol,
		Interval:    p.Kline.Interval,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		BarOpenTime: p.Kline.StartTime / 1000,
		IsFinal:     p.Kline.IsFinal,
	}, nil
}

func (t *miniTicker) toEvent() (domain.TickEvent, error) {
	if t.Symbol == "" {
		return domain.TickEvent{}, fmt.Errorf("ticker element missing symbol")
	}
	last, err := decimal.NewFromString(t.Close)
	if err != nil {
		return domain.TickEvent{}, fmt.Errorf("parse last price %q: %w", t.Close, err)
	}
	return domain.TickEvent{
		Kind:      domain.TickKindTicker,
		Symbol:    t.Symbol,
		LastPrice: last,
	}, nil
}
