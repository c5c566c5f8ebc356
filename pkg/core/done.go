package core

import (
	"encoding/json"
	"strings"

	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
)

// Trade is a single execution produced by the matching engine. It is the
// only externally observable product of matching besides book queries.
type Trade struct {
	BuyOrderID  string
	SellOrderID string
	Price       fpdecimal.Decimal
	Quantity    fpdecimal.Decimal
	MatchSeq    uint64
}

// MarshalJSON implements Marshaler interface
func (t *Trade) MarshalJSON() ([]byte, error) {
	customStruct := struct {
		BuyOrderID  string `json:"buyOrderID"`
		SellOrderID string `json:"sellOrderID"`
		Price       string `json:"price"`
		Quantity    string `json:"quantity"`
		MatchSeq    uint64 `json:"matchSeq"`
	}{
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       t.Price.String(),
		Quantity:    t.Quantity.String(),
		MatchSeq:    t.MatchSeq,
	}
	return json.Marshal(customStruct)
}

// Done contains information about the order execution result
type Done struct {
	// Initial order processed
	Order *Order
	// Quantity of the order when the command was accepted
	Quantity fpdecimal.Decimal
	// Trades executed by this command
	Trades []Trade
	// Order IDs canceled, e.g. an IOC remainder
	Canceled []string
	// Remaining quantity left for the initial order
	Left fpdecimal.Decimal
	// Total quantity executed for the initial order
	Processed fpdecimal.Decimal
	// Whether the order rests in the book after the command
	Stored bool
}

// newDone creates a new Done object for the given order
func newDone(order *Order) *Done {
	return &Done{
		Order:    order,
		Quantity: order.Quantity(),
		Trades:   make([]Trade, 0),
		Canceled: make([]string, 0),
	}
}

// appendTrade records one execution.
func (d *Done) appendTrade(buy, sell *Order, price, quantity fpdecimal.Decimal, matchSeq uint64) {
	d.Trades = append(d.Trades, Trade{
		BuyOrderID:  buy.ID(),
		SellOrderID: sell.ID(),
		Price:       price,
		Quantity:    quantity,
		MatchSeq:    matchSeq,
	})
}

// appendCanceled adds a canceled order ID to the Done object
func (d *Done) appendCanceled(order *Order) {
	d.Canceled = append(d.Canceled, order.ID())
}

// settle finalizes the Left/Processed bookkeeping from the order's remaining
// quantity after matching.
func (d *Done) settle(left fpdecimal.Decimal, stored bool) {
	d.Left = left
	d.Processed = d.Quantity.Sub(left)
	d.Stored = stored
}

// ToMessagingDoneMessage converts the Done object to a messaging.DoneMessage.
func (d *Done) ToMessagingDoneMessage() *messaging.DoneMessage {
	if d == nil || d.Order == nil {
		return nil
	}

	trades := make([]messaging.Trade, len(d.Trades))
	for i, trade := range d.Trades {
		trades[i] = messaging.Trade{
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Price:       FormatDecimal(trade.Price),
			Quantity:    FormatDecimal(trade.Quantity),
			MatchSeq:    trade.MatchSeq,
		}
	}

	canceled := make([]string, len(d.Canceled))
	copy(canceled, d.Canceled)

	return &messaging.DoneMessage{
		OrderID:      d.Order.ID(),
		Symbol:       d.Order.Symbol(),
		ExecutedQty:  FormatDecimal(d.Processed),
		RemainingQty: FormatDecimal(d.Left),
		Trades:       trades,
		Canceled:     canceled,
		Stored:       d.Stored,
	}
}

// FormatDecimal renders decimal values consistently with 3 decimal places.
func FormatDecimal(d fpdecimal.Decimal) string {
	val := d.String()
	parts := strings.Split(val, ".")
	if len(parts) == 1 {
		return val + ".000"
	}
	if len(parts[1]) < 3 {
		return val + strings.Repeat("0", 3-len(parts[1]))
	}
	return val
}

// MarshalJSON implements json.Marshaler interface for Done
func (d *Done) MarshalJSON() ([]byte, error) {
	trades := make([]*Trade, 0, len(d.Trades))
	for i := range d.Trades {
		trades = append(trades, &d.Trades[i])
	}

	return json.Marshal(struct {
		Order     *Order   `json:"order"`
		Trades    []*Trade `json:"trades"`
		Canceled  []string `json:"canceled"`
		Left      string   `json:"left"`
		Processed string   `json:"processed"`
		Stored    bool     `json:"stored"`
	}{
		Order:     d.Order,
		Trades:    trades,
		Canceled:  d.Canceled,
		Left:      d.Left.String(),
		Processed: d.Processed.String(),
		Stored:    d.Stored,
	})
}
