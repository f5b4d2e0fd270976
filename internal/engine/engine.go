package engine

import (
	"scalp_go/internal/broadcast"
	"scalp_go/internal/domain"
	"scalp_go/internal/infra"
	"scalp_go/internal/ledger"
	"scalp_go/internal/service"
)

// Engine drives order transitions from the tick stream. It is not a thread
// of control of its own: HandleTick runs synchronously on the stream
// worker's goroutine for every event.
type Engine struct {
	ledger *ledger.Ledger
	hub    *broadcast.Hub
	market *service.MarketService
}

// New wires the engine to its collaborators. hub and market may be nil.
func New(l *ledger.Ledger, hub *broadcast.Hub, market *service.MarketService) *Engine {
	return &Engine{
		ledger: l,
		hub:    hub,
		market: market,
	}
}

// HandleTick processes one normalized feed event. Fill checks run before
// exit checks; an order filled by this tick becomes eligible for exit on the
// next tick, never within the same one. Only finalized klines reach the
// broadcast subscribers; the full ticker flow would swamp them.
func (e *Engine) HandleTick(ev domain.TickEvent) {
	if price, ok := ev.Price(); ok {
		infra.GlobalMetrics.RecordTick()
		e.ledger.CheckPendingFills(ev.Symbol, price)
		e.ledger.CheckOpenOrders(ev.Symbol, price)
		if e.market != nil {
			e.market.Update(ev)
		}
	}

	if ev.Kind == domain.TickKindKline && ev.IsFinal && e.hub != nil {
		e.hub.Broadcast(ev)
	}
}
