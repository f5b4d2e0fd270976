package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Binance Futures REST constants
const (
	DefaultRestURL = "https://fapi.binance.com"
	maxKlineLimit  = 1500
)

// Client is the Binance USDT-futures REST client (boundary layer). It only
// covers what the engine and the API layer consume: historical klines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Binance REST client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Kline is one historical candle normalized for chart consumers.
type Kline struct {
	Time      int64           `json:"time"` // Unix seconds
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	CloseTime int64           `json:"close_time"` // Unix milliseconds
}

// HistoricalKlines fetches past candles via the REST API.
func (c *Client) HistoricalKlines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	if limit <= 0 {
		limit = 500
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	endpoint := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=%d",
		c.baseURL, strings.ToUpper(symbol), interval, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines request failed: status %d: %s", resp.StatusCode, string(body))
	}

	// Rows are heterogenous arrays: [openTime, "o", "h", "l", "c", "v", closeTime, ...]
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	out := make([]Kline, 0, len(rows))
	for _, row := range rows {
		k, err := parseKlineRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func parseKlineRow(row []any) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("kline row too short: %d fields", len(row))
	}

	openTime, err := rowInt(row[0])
	if err != nil {
		return Kline{}, fmt.Errorf("parse open time: %w", err)
	}
	closeTime, err := rowInt(row[6])
	if err != nil {
		return Kline{}, fmt.Errorf("parse close time: %w", err)
	}

	prices := make([]decimal.Decimal, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return Kline{}, fmt.Errorf("kline field %d is not a string", i)
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return Kline{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		prices[i-1] = v
	}

	return Kline{
		Time:      openTime / 1000,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: closeTime,
	}, nil
}

func rowInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return n.Int64()
}
