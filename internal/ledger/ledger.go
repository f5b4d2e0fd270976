package ledger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"scalp_go/internal/domain"
	"scalp_go/internal/infra"
	"scalp_go/internal/infra/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger owns the order lifecycle. The in-memory index (pending/open maps and
// the capped closed history) is a cache over SQLite: every transition is
// written durably before it is published to the index, so a restart rebuilds
// the exact same state from storage alone.
//
// One mutex guards the whole ledger. The stream consumer (fill/exit checks)
// and the scanner (new orders) mutate it concurrently, and the
// one-active-order-per-symbol invariant only holds if their read-modify-write
// sequences cannot interleave.
type Ledger struct {
	mu    sync.Mutex
	store *storage.Storage

	pending map[string]*domain.Order // by order ID
	open    map[string]*domain.Order // by order ID
	closed  []*domain.Order          // most recent first, capped

	// Orders filled by the current tick's fill sweep. The exit sweep skips
	// them so an order never opens and closes inside one tick.
	justFilled map[string]struct{}

	closedCap int
	expiry    time.Duration

	now func() time.Time // swapped in tests
}

// NewLedger builds a ledger and reconstructs its state from storage.
func NewLedger(store *storage.Storage, expiry time.Duration, closedCap int) (*Ledger, error) {
	if closedCap <= 0 {
		closedCap = 100
	}
	if expiry <= 0 {
		expiry = 20 * time.Minute
	}

	l := &Ledger{
		store:      store,
		pending:    make(map[string]*domain.Order),
		open:       make(map[string]*domain.Order),
		justFilled: make(map[string]struct{}),
		closedCap:  closedCap,
		expiry:     expiry,
		now:        time.Now,
	}

	active, err := store.LoadActive()
	if err != nil {
		return nil, err
	}
	for _, o := range active {
		if o.Status == domain.OrderStatusPending {
			l.pending[o.ID] = o
		} else {
			l.open[o.ID] = o
		}
	}

	closed, err := store.LoadClosed(closedCap)
	if err != nil {
		return nil, err
	}
	l.closed = closed

	slog.Info("Order ledger restored",
		slog.Int("pending", len(l.pending)),
		slog.Int("open", len(l.open)),
		slog.Int("closed", len(l.closed)))
	return l, nil
}

// OpenNewOrder creates a PENDING order for the symbol unless an active
// (PENDING or OPEN) order already exists for it. The duplicate case is a
// silent no-op; only durable-write failure is an error.
func (l *Ledger) OpenNewOrder(symbol string, setup domain.TradeSetup) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hasActiveLocked(symbol) {
		return nil
	}

	now := l.now().Unix()
	order := &domain.Order{
		ID:               uuid.NewString(),
		Symbol:           symbol,
		Direction:        setup.Direction,
		EntryPrice:       setup.EntryPrice.Round(4),
		TakeProfitPrice:  setup.TakeProfitPrice.Round(4),
		StopLossPrice:    setup.StopLossPrice.Round(4),
		EstimatedWinRate: setup.EstimatedWinRate.Round(2),
		Status:           domain.OrderStatusPending,
		CreatedTime:      now,
		OpenTime:         now,
		ExpirationTime:   now + int64(l.expiry/time.Second),
	}

	// Durable first, index second. On write failure the order never existed.
	if err := l.store.InsertActive(order); err != nil {
		return err
	}
	l.pending[order.ID] = order

	infra.GlobalMetrics.RecordOrderCreated()
	slog.Info("Placed PENDING order",
		slog.String("symbol", symbol),
		slog.String("direction", order.Direction),
		slog.String("entry", order.EntryPrice.String()),
		slog.String("win_rate", order.EstimatedWinRate.String()))
	return nil
}

// CheckPendingFills runs the fill check for the symbol's PENDING orders and
// the expiry check across ALL pending orders. Expiry is intentionally not
// symbol-scoped: a pending order on a quiet symbol still cancels when any
// other symbol ticks past its deadline. Its close price is the current tick
// price.
func (l *Ledger) CheckPendingFills(symbol string, currentPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().Unix()

	for id, order := range l.pending {
		if order.ExpiredAt(now) {
			l.cancelExpiredLocked(id, order, currentPrice, now)
			continue
		}

		if order.Symbol != symbol {
			continue
		}

		if order.EntryHit(currentPrice) {
			if err := l.store.MarkOpen(id, now); err != nil {
				slog.Error("Fill persist failed, order stays PENDING",
					slog.String("id", id), slog.Any("error", err))
				continue
			}
			order.Status = domain.OrderStatusOpen
			order.OpenTime = now
			delete(l.pending, id)
			l.open[id] = order
			l.justFilled[id] = struct{}{}

			infra.GlobalMetrics.RecordOrderFilled()
			slog.Info("Order filled",
				slog.String("symbol", order.Symbol),
				slog.String("direction", order.Direction),
				slog.String("price", currentPrice.String()))
		}
	}
}

// CheckOpenOrders recomputes running PnL for the symbol's OPEN orders and
// closes any that touched take-profit or stop-loss. Take-profit wins when
// both trigger on the same tick. Orders filled by this tick's fill sweep are
// exit-checked starting with the next tick.
func (l *Ledger) CheckOpenOrders(symbol string, currentPrice decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().Unix()

	for id, order := range l.open {
		if _, fresh := l.justFilled[id]; fresh {
			delete(l.justFilled, id)
			continue
		}
		if order.Symbol != symbol {
			continue
		}

		// RAM only. Per-tick PnL is never written to storage.
		order.RunningPnL = order.PnLPercent(currentPrice)

		var reason string
		switch {
		case order.TakeProfitHit(currentPrice):
			reason = domain.CloseReasonTakeProfit
		case order.StopLossHit(currentPrice):
			reason = domain.CloseReasonStopLoss
		default:
			continue
		}

		// Stage the terminal state; publish only after the durable write.
		staged := *order
		staged.Status = domain.OrderStatusClosed
		staged.CloseReason = reason
		staged.ClosePrice = currentPrice
		staged.FinalPnL = staged.RunningPnL
		staged.CloseTime = now

		if err := l.store.MoveToClosed(&staged); err != nil {
			slog.Error("Close persist failed, order stays OPEN",
				slog.String("id", id), slog.Any("error", err))
			continue
		}

		*order = staged
		delete(l.open, id)
		l.pushClosedLocked(order)

		infra.GlobalMetrics.RecordOrderClosed()
		slog.Info("Order closed",
			slog.String("symbol", order.Symbol),
			slog.String("reason", reason),
			slog.String("pnl", order.FinalPnL.String()))
	}
}

// cancelExpiredLocked moves a timed-out PENDING order to CANCELED/EXPIRED.
func (l *Ledger) cancelExpiredLocked(id string, order *domain.Order, currentPrice decimal.Decimal, now int64) {
	staged := *order
	staged.Status = domain.OrderStatusCanceled
	staged.CloseReason = domain.CloseReasonExpired
	staged.ClosePrice = currentPrice
	staged.FinalPnL = decimal.Zero
	staged.CloseTime = now

	if err := l.store.MoveToClosed(&staged); err != nil {
		slog.Error("Expiry persist failed, order stays PENDING",
			slog.String("id", id), slog.Any("error", err))
		return
	}

	*order = staged
	delete(l.pending, id)
	l.pushClosedLocked(order)

	infra.GlobalMetrics.RecordOrderExpired()
	slog.Info("Canceled unfilled PENDING order",
		slog.String("symbol", order.Symbol),
		slog.String("id", id))
}

func (l *Ledger) hasActiveLocked(symbol string) bool {
	for _, o := range l.pending {
		if o.Symbol == symbol {
			return true
		}
	}
	for _, o := range l.open {
		if o.Symbol == symbol {
			return true
		}
	}
	return false
}

func (l *Ledger) pushClosedLocked(order *domain.Order) {
	l.closed = append([]*domain.Order{order}, l.closed...)
	if len(l.closed) > l.closedCap {
		l.closed = l.closed[:l.closedCap]
	}
}

// PendingOrders returns a point-in-time copy of the pending set, sorted by
// symbol for stable output.
func (l *Ledger) PendingOrders() []domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedSnapshot(l.pending)
}

// OpenOrders returns a point-in-time copy of the open set, sorted by symbol.
func (l *Ledger) OpenOrders() []domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedSnapshot(l.open)
}

// ClosedOrders returns the bounded closed history, most recent first.
func (l *Ledger) ClosedOrders() []domain.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Order, 0, len(l.closed))
	for _, o := range l.closed {
		out = append(out, *o)
	}
	return out
}

func sortedSnapshot(m map[string]*domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(m))
	for _, o := range m {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].CreatedTime < out[j].CreatedTime
	})
	return out
}
