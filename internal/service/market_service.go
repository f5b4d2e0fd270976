package service

import (
	"sort"
	"sync"

	"scalp_go/internal/domain"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the last-seen state of one symbol, exposed to the API
// layer's market endpoints.
type MarketSnapshot struct {
	Symbol            string          `json:"symbol"`
	LastPrice         decimal.Decimal `json:"last_price"`
	LastKlineClose    decimal.Decimal `json:"last_kline_close"`
	LastKlineInterval string          `json:"last_kline_interval,omitempty"`
	BarOpenTime       int64           `json:"bar_open_time,omitempty"`
	UpdatedAt         int64           `json:"updated_at"` // Unix seconds of last update tick
}

// MarketService manages the last-seen market state per symbol
type MarketService struct {
	mu        sync.RWMutex
	snapshots map[string]*MarketSnapshot
	clock     func() int64
}

// NewMarketService creates a new MarketService instance
func NewMarketService(clock func() int64) *MarketService {
	return &MarketService{
		snapshots: make(map[string]*MarketSnapshot),
		clock:     clock,
	}
}

// Update folds one tick event into the per-symbol snapshot. It is
// thread-safe and called inline from the transition engine.
func (s *MarketService) Update(ev domain.TickEvent) {
	price, ok := ev.Price()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, exists := s.snapshots[ev.Symbol]
	if !exists {
		snap = &MarketSnapshot{Symbol: ev.Symbol}
		s.snapshots[ev.Symbol] = snap
	}

	snap.LastPrice = price
	if ev.Kind == domain.TickKindKline {
		snap.LastKlineClose = ev.Close
		snap.LastKlineInterval = ev.Interval
		snap.BarOpenTime = ev.BarOpenTime
	}
	snap.UpdatedAt = s.clock()
}

// Snapshot returns a copy of the symbol's state, or nil if never seen.
func (s *MarketService) Snapshot(symbol string) *MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[symbol]
	if !ok {
		return nil
	}
	copied := *snap
	return &copied
}

// AllSnapshots returns every symbol's state sorted by symbol for consistent
// ordering.
func (s *MarketService) AllSnapshots() []MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MarketSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, *snap)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result
}
