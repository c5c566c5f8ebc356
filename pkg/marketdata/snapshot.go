package marketdata

import (
	"time"

	"github.com/erain9/limitbook/pkg/core"
)

// Quote is one side of the top of book.
type Quote struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Orders   int    `json:"orders"`
}

// Snapshot is a point-in-time top-of-book view for one symbol. Readers must
// tolerate staleness: snapshots are published out-of-band and lag the book.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Bid       *Quote    `json:"bid,omitempty"`
	Ask       *Quote    `json:"ask,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capture builds a snapshot from a book's current best levels without
// holding the book's lock across the publish path.
func Capture(book *core.OrderBook) *Snapshot {
	snapshot := &Snapshot{
		Symbol:    book.Symbol(),
		UpdatedAt: time.Now(),
	}
	if bid, ok := book.BestBid(); ok {
		snapshot.Bid = &Quote{
			Price:    core.FormatDecimal(bid.Price),
			Quantity: core.FormatDecimal(bid.Quantity),
			Orders:   bid.Orders,
		}
	}
	if ask, ok := book.BestAsk(); ok {
		snapshot.Ask = &Quote{
			Price:    core.FormatDecimal(ask.Price),
			Quantity: core.FormatDecimal(ask.Quantity),
			Orders:   ask.Orders,
		}
	}
	return snapshot
}
