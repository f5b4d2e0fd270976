package service

import (
	"testing"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
)

func fixedClock() int64 { return 1700000000 }

func TestMarketService_TickerUpdate(t *testing.T) {
	svc := NewMarketService(fixedClock)

	svc.Update(domain.TickEvent{
		Kind:      domain.TickKindTicker,
		Symbol:    "BTCUSDT",
		LastPrice: decimal.NewFromFloat(50000.5),
	})

	snap := svc.Snapshot("BTCUSDT")
	if snap == nil {
		t.Fatal("BTCUSDT snapshot should exist")
	}
	if !snap.LastPrice.Equal(decimal.NewFromFloat(50000.5)) {
		t.Errorf("last price = %v, want 50000.5", snap.LastPrice)
	}
	if snap.UpdatedAt != 1700000000 {
		t.Errorf("updated at = %d, want clock value", snap.UpdatedAt)
	}
}

func TestMarketService_KlineUpdate(t *testing.T) {
	svc := NewMarketService(fixedClock)

	svc.Update(domain.TickEvent{
		Kind:        domain.TickKindKline,
		Symbol:      "ETHUSDT",
		Interval:    "5m",
		Close:       decimal.NewFromInt(3000),
		BarOpenTime: 1699999800,
	})

	snap := svc.Snapshot("ETHUSDT")
	if snap == nil {
		t.Fatal("ETHUSDT snapshot should exist")
	}
	if snap.LastKlineInterval != "5m" || snap.BarOpenTime != 1699999800 {
		t.Errorf("kline fields not recorded: %+v", snap)
	}
	if !snap.LastPrice.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("last price should follow kline close, got %v", snap.LastPrice)
	}
}

func TestMarketService_UnusableEventIgnored(t *testing.T) {
	svc := NewMarketService(fixedClock)

	svc.Update(domain.TickEvent{Kind: domain.TickKindKline, Symbol: "BTCUSDT"})

	if svc.Snapshot("BTCUSDT") != nil {
		t.Error("zero-price event must not create a snapshot")
	}
}

func TestMarketService_AllSnapshotsSorted(t *testing.T) {
	svc := NewMarketService(fixedClock)

	for _, sym := range []string{"ZRXUSDT", "BTCUSDT", "ETHUSDT"} {
		svc.Update(domain.TickEvent{
			Kind:      domain.TickKindTicker,
			Symbol:    sym,
			LastPrice: decimal.NewFromInt(1),
		})
	}

	all := svc.AllSnapshots()
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}
	if all[0].Symbol != "BTCUSDT" || all[2].Symbol != "ZRXUSDT" {
		t.Errorf("snapshots not sorted: %s, %s, %s", all[0].Symbol, all[1].Symbol, all[2].Symbol)
	}
}
