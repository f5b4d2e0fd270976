package domain

import "github.com/shopspring/decimal"

const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"

	OrderStatusPending  = "PENDING"
	OrderStatusOpen     = "OPEN"
	OrderStatusClosed   = "CLOSED"
	OrderStatusCanceled = "CANCELED"

	CloseReasonTakeProfit = "TAKE_PROFIT"
	CloseReasonStopLoss   = "STOP_LOSS"
	CloseReasonExpired    = "EXPIRED"
)

// TradeSetup is a directional signal produced by the prediction service.
// Prices are absolute levels, EstimatedWinRate is a percentage (0-100).
type TradeSetup struct {
	Direction        string          `json:"direction"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	TakeProfitPrice  decimal.Decimal `json:"take_profit_price"`
	StopLossPrice    decimal.Decimal `json:"stop_loss_price"`
	EstimatedWinRate decimal.Decimal `json:"estimated_win_rate"`
}

// Order is a simulated limit order. Entry/TP/SL levels are fixed at creation;
// only Status, RunningPnL and the Close* fields mutate afterward.
type Order struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Direction        string          `json:"direction"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	TakeProfitPrice  decimal.Decimal `json:"take_profit_price"`
	StopLossPrice    decimal.Decimal `json:"stop_loss_price"`
	EstimatedWinRate decimal.Decimal `json:"estimated_win_rate"`
	Status           string          `json:"status"`
	CreatedTime      int64           `json:"created_time"`    // Unix seconds
	OpenTime         int64           `json:"open_time"`       // Re-stamped when the entry fills
	ExpirationTime   int64           `json:"expiration_time"` // PENDING orders cancel past this

	// RunningPnL is recomputed in memory on every tick while OPEN. Never persisted.
	RunningPnL decimal.Decimal `json:"pnl"`

	CloseReason string          `json:"close_reason,omitempty"`
	ClosePrice  decimal.Decimal `json:"close_price"`
	FinalPnL    decimal.Decimal `json:"final_pnl"`
	CloseTime   int64           `json:"close_time,omitempty"`
}

// IsActive reports whether the order counts toward the one-per-symbol limit.
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusOpen
}

// EntryHit checks the resting-limit fill condition: a LONG fills when price
// drops to the entry, a SHORT fills when price rises to it.
func (o *Order) EntryHit(price decimal.Decimal) bool {
	if o.Direction == DirectionShort {
		return price.GreaterThanOrEqual(o.EntryPrice)
	}
	return price.LessThanOrEqual(o.EntryPrice)
}

// TakeProfitHit checks the take-profit condition for the order's direction.
func (o *Order) TakeProfitHit(price decimal.Decimal) bool {
	if o.Direction == DirectionShort {
		return price.LessThanOrEqual(o.TakeProfitPrice)
	}
	return price.GreaterThanOrEqual(o.TakeProfitPrice)
}

// StopLossHit checks the stop-loss condition for the order's direction.
func (o *Order) StopLossHit(price decimal.Decimal) bool {
	if o.Direction == DirectionShort {
		return price.GreaterThanOrEqual(o.StopLossPrice)
	}
	return price.LessThanOrEqual(o.StopLossPrice)
}

// PnLPercent returns the percentage move from entry in the order's favor,
// rounded to 2 decimal places.
func (o *Order) PnLPercent(price decimal.Decimal) decimal.Decimal {
	if o.EntryPrice.IsZero() {
		return decimal.Zero
	}
	var move decimal.Decimal
	if o.Direction == DirectionShort {
		move = o.EntryPrice.Sub(price)
	} else {
		move = price.Sub(o.EntryPrice)
	}
	return move.Div(o.EntryPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

// ExpiredAt reports whether a PENDING order has passed its expiration time.
func (o *Order) ExpiredAt(nowUnix int64) bool {
	return o.Status == OrderStatusPending && o.ExpirationTime > 0 && nowUnix >= o.ExpirationTime
}
