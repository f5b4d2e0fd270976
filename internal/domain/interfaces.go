package domain

import "context"

// TickHandler consumes one normalized tick event. Handlers run on the stream
// worker's goroutine and must not block.
type TickHandler func(TickEvent)

// StreamWorker defines the interface for market-data WebSocket connectors
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// Predictor is the prediction-service boundary. Predict returns ErrNoSignal
// when the model has no usable setup for the symbol.
type Predictor interface {
	Ready() bool
	Predict(ctx context.Context, symbol, interval string) (*TradeSetup, error)
}

// SymbolProvider lists the tradable instrument universe in exchange order.
type SymbolProvider interface {
	ListActiveSymbols(ctx context.Context) ([]string, error)
}
