package infra

import (
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordTick()
	m.RecordTick()
	m.RecordTick()
	m.RecordOrderCreated()
	m.RecordOrderFilled()
	m.RecordOrderClosed()
	m.RecordOrderExpired()
	m.RecordDecodeDrop()

	snap := m.Snapshot()

	if snap.TicksProcessed != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksProcessed)
	}
	if snap.OrdersCreated != 1 || snap.OrdersFilled != 1 || snap.OrdersClosed != 1 || snap.OrdersExpired != 1 {
		t.Errorf("Unexpected order counters: %+v", snap)
	}
	if snap.DecodeDrops != 1 {
		t.Errorf("Expected 1 decode drop, got %d", snap.DecodeDrops)
	}
}

func TestMetrics_StreamState(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.StreamConnected {
		t.Error("Expected stream down initially")
	}

	m.SetStreamConnected(true)
	if !m.Snapshot().StreamConnected {
		t.Error("Expected stream connected")
	}

	m.SetStreamConnected(false)
	m.RecordReconnect()
	snap = m.Snapshot()
	if snap.StreamConnected {
		t.Error("Expected stream down after disconnect")
	}
	if snap.Reconnects != 1 {
		t.Errorf("Expected 1 reconnect, got %d", snap.Reconnects)
	}
}

func TestMetrics_Subscribers(t *testing.T) {
	m := &Metrics{}

	m.IncrementSubscribers()
	m.IncrementSubscribers()
	m.DecrementSubscribers()

	if got := m.Snapshot().Subscribers; got != 1 {
		t.Errorf("Expected 1 subscriber, got %d", got)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}
	m.RecordTick()
	m.SetStreamConnected(true)

	m.Reset()

	snap := m.Snapshot()
	if snap.TicksProcessed != 0 || snap.StreamConnected {
		t.Errorf("Reset did not clear metrics: %+v", snap)
	}
}
