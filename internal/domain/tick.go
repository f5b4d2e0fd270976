package domain

import "github.com/shopspring/decimal"

// Tick event kinds
const (
	TickKindKline  = "kline"
	TickKindTicker = "ticker"
)

// TickEvent is one normalized unit of market data from the combined feed:
// either a kline (possibly still forming) or a ticker snapshot.
type TickEvent struct {
	Kind     string `json:"type"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval,omitempty"` // kline only

	// kline only
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	BarOpenTime int64           `json:"time"` // Unix seconds
	IsFinal     bool            `json:"is_final"`

	// ticker only
	LastPrice decimal.Decimal `json:"last_price,omitempty"`
}

// Price returns the price that drives order transitions (kline close or
// ticker last price) and whether the event carries a usable one.
func (e TickEvent) Price() (decimal.Decimal, bool) {
	switch e.Kind {
	case TickKindKline:
		if e.Close.IsPositive() {
			return e.Close, true
		}
	case TickKindTicker:
		if e.LastPrice.IsPositive() {
			return e.LastPrice, true
		}
	}
	return decimal.Zero, false
}
