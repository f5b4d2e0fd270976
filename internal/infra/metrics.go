package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed  atomic.Uint64
	decodeDrops     atomic.Uint64
	reconnects      atomic.Uint64
	ordersCreated   atomic.Uint64
	ordersFilled    atomic.Uint64
	ordersClosed    atomic.Uint64
	ordersExpired   atomic.Uint64
	broadcastErrors atomic.Uint64

	// Gauges
	streamConnected atomic.Int32 // 1 = connected, 0 = down
	subscribers     atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one processed tick event.
func (m *Metrics) RecordTick() {
	m.ticksProcessed.Add(1)
}

// RecordDecodeDrop records a malformed feed message that was dropped.
func (m *Metrics) RecordDecodeDrop() {
	m.decodeDrops.Add(1)
}

// RecordReconnect records a stream reconnection attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordOrderCreated records a new PENDING order.
func (m *Metrics) RecordOrderCreated() {
	m.ordersCreated.Add(1)
}

// RecordOrderFilled records a PENDING -> OPEN transition.
func (m *Metrics) RecordOrderFilled() {
	m.ordersFilled.Add(1)
}

// RecordOrderClosed records an OPEN -> CLOSED transition.
func (m *Metrics) RecordOrderClosed() {
	m.ordersClosed.Add(1)
}

// RecordOrderExpired records a PENDING -> CANCELED transition.
func (m *Metrics) RecordOrderExpired() {
	m.ordersExpired.Add(1)
}

// RecordBroadcastError records a failed delivery to one subscriber.
func (m *Metrics) RecordBroadcastError() {
	m.broadcastErrors.Add(1)
}

// SetStreamConnected sets the feed connection state.
func (m *Metrics) SetStreamConnected(connected bool) {
	if connected {
		m.streamConnected.Store(1)
	} else {
		m.streamConnected.Store(0)
	}
}

// IncrementSubscribers increments the broadcast subscriber gauge.
func (m *Metrics) IncrementSubscribers() {
	m.subscribers.Add(1)
}

// DecrementSubscribers decrements the broadcast subscriber gauge.
func (m *Metrics) DecrementSubscribers() {
	m.subscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed  uint64
	DecodeDrops     uint64
	Reconnects      uint64
	OrdersCreated   uint64
	OrdersFilled    uint64
	OrdersClosed    uint64
	OrdersExpired   uint64
	BroadcastErrors uint64
	StreamConnected bool
	Subscribers     int32
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksProcessed:  m.ticksProcessed.Load(),
		DecodeDrops:     m.decodeDrops.Load(),
		Reconnects:      m.reconnects.Load(),
		OrdersCreated:   m.ordersCreated.Load(),
		OrdersFilled:    m.ordersFilled.Load(),
		OrdersClosed:    m.ordersClosed.Load(),
		OrdersExpired:   m.ordersExpired.Load(),
		BroadcastErrors: m.broadcastErrors.Load(),
		StreamConnected: m.streamConnected.Load() == 1,
		Subscribers:     m.subscribers.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.decodeDrops.Store(0)
	m.reconnects.Store(0)
	m.ordersCreated.Store(0)
	m.ordersFilled.Store(0)
	m.ordersClosed.Store(0)
	m.ordersExpired.Store(0)
	m.broadcastErrors.Store(0)
	m.streamConnected.Store(0)
	m.subscribers.Store(0)
}
