package messaging

import "context"

// MessageSender defines an interface for publishing execution reports.
// This keeps the core package decoupled from specific implementations
// like Kafka in the queue package.
type MessageSender interface {
	SendDoneMessage(ctx context.Context, done *DoneMessage) error
	Close() error
}

// DoneMessage represents the outcome of one order-entry command as published
// to downstream consumers (market-data, trade-report pipelines).
type DoneMessage struct {
	OrderID      string
	Symbol       string
	ExecutedQty  string
	RemainingQty string
	Stored       bool
	Canceled     []string
	Trades       []Trade
}

// Trade represents a single trade execution
type Trade struct {
	BuyOrderID  string
	SellOrderID string
	Price       string
	Quantity    string
	MatchSeq    uint64
}
