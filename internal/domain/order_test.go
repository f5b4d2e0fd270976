package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestOrder_EntryHit(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		entry     string
		price     string
		want      bool
	}{
		{"long fills below entry", DirectionLong, "100", "99.5", true},
		{"long fills at entry", DirectionLong, "100", "100", true},
		{"long waits above entry", DirectionLong, "100", "100.5", false},
		{"short fills above entry", DirectionShort, "100", "100.5", true},
		{"short fills at entry", DirectionShort, "100", "100", true},
		{"short waits below entry", DirectionShort, "100", "99.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Direction: tt.direction, EntryPrice: d(tt.entry)}
			if got := o.EntryHit(d(tt.price)); got != tt.want {
				t.Errorf("EntryHit(%s) = %v, want %v", tt.price, got, tt.want)
			}
		})
	}
}

func TestOrder_TakeProfitAndStopLoss(t *testing.T) {
	long := &Order{Direction: DirectionLong, EntryPrice: d("100"), TakeProfitPrice: d("110"), StopLossPrice: d("95")}

	if !long.TakeProfitHit(d("110")) {
		t.Error("long TP should trigger at tp price")
	}
	if long.TakeProfitHit(d("109.99")) {
		t.Error("long TP should not trigger below tp price")
	}
	if !long.StopLossHit(d("95")) {
		t.Error("long SL should trigger at sl price")
	}
	if long.StopLossHit(d("95.01")) {
		t.Error("long SL should not trigger above sl price")
	}

	short := &Order{Direction: DirectionShort, EntryPrice: d("100"), TakeProfitPrice: d("90"), StopLossPrice: d("105")}

	if !short.TakeProfitHit(d("90")) {
		t.Error("short TP should trigger at tp price")
	}
	if !short.StopLossHit(d("105")) {
		t.Error("short SL should trigger at sl price")
	}
	if short.StopLossHit(d("104.99")) {
		t.Error("short SL should not trigger below sl price")
	}
}

func TestOrder_PnLPercent(t *testing.T) {
	long := &Order{Direction: DirectionLong, EntryPrice: d("100")}
	if got := long.PnLPercent(d("105")); !got.Equal(d("5")) {
		t.Errorf("long pnl = %v, want 5", got)
	}
	if got := long.PnLPercent(d("98")); !got.Equal(d("-2")) {
		t.Errorf("long pnl = %v, want -2", got)
	}

	short := &Order{Direction: DirectionShort, EntryPrice: d("200")}
	if got := short.PnLPercent(d("190")); !got.Equal(d("5")) {
		t.Errorf("short pnl = %v, want 5", got)
	}

	// Zero entry must not divide
	broken := &Order{Direction: DirectionLong}
	if got := broken.PnLPercent(d("10")); !got.IsZero() {
		t.Errorf("zero-entry pnl = %v, want 0", got)
	}
}

func TestOrder_ExpiredAt(t *testing.T) {
	o := &Order{Status: OrderStatusPending, ExpirationTime: 1000}

	if o.ExpiredAt(999) {
		t.Error("should not expire before expiration time")
	}
	if !o.ExpiredAt(1000) {
		t.Error("should expire at expiration time")
	}

	// Only PENDING orders expire
	o.Status = OrderStatusOpen
	if o.ExpiredAt(2000) {
		t.Error("OPEN orders never expire")
	}
}

func TestTickEvent_Price(t *testing.T) {
	kline := TickEvent{Kind: TickKindKline, Symbol: "BTCUSDT", Close: d("50000.5")}
	if p, ok := kline.Price(); !ok || !p.Equal(d("50000.5")) {
		t.Errorf("kline price = %v/%v, want 50000.5/true", p, ok)
	}

	ticker := TickEvent{Kind: TickKindTicker, Symbol: "BTCUSDT", LastPrice: d("100.5")}
	if p, ok := ticker.Price(); !ok || !p.Equal(d("100.5")) {
		t.Errorf("ticker price = %v/%v, want 100.5/true", p, ok)
	}

	empty := TickEvent{Kind: TickKindKline, Symbol: "BTCUSDT"}
	if _, ok := empty.Price(); ok {
		t.Error("zero-price event must not be usable")
	}
}
