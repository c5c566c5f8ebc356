package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the contra side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TIF represents time in force parameter
type TIF string

// Order Time In Force (TIF)
const (
	GTC TIF = "GTC" // Good Till Canceled
	IOC TIF = "IOC" // Immediate Or Cancel
)

// Order stores information about a single limit order. Identity fields are
// immutable after construction; only the remaining quantity and the arrival
// sequence (assigned by the book) change over its lifetime.
type Order struct {
	id          string
	symbol      string
	side        Side
	quantity    fpdecimal.Decimal
	originalQty fpdecimal.Decimal
	price       fpdecimal.Decimal
	seq         uint64
	tif         TIF
}

// NewOrder creates a validated limit order. The arrival sequence is zero
// until the order is accepted by a book.
func NewOrder(orderID, symbol string, side Side, quantity, price fpdecimal.Decimal, tif TIF) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}

	if tif != "" && tif != GTC && tif != IOC {
		return nil, ErrInvalidTif
	}

	if tif == "" {
		tif = GTC
	}

	return &Order{
		id:          orderID,
		symbol:      symbol,
		side:        side,
		quantity:    quantity,
		originalQty: quantity,
		price:       price,
		tif:         tif,
	}, nil
}

// ID returns OrderID field copy
func (o *Order) ID() string {
	return o.id
}

// Symbol returns the instrument symbol
func (o *Order) Symbol() string {
	return o.symbol
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Quantity returns the remaining quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.quantity
}

// OriginalQty returns the quantity the order was created with
func (o *Order) OriginalQty() fpdecimal.Decimal {
	return o.originalQty
}

// SetQuantity set Quantity field
func (o *Order) SetQuantity(quantity fpdecimal.Decimal) {
	o.quantity = quantity
}

// DecreaseQuantity reduces the remaining quantity
func (o *Order) DecreaseQuantity(quantity fpdecimal.Decimal) {
	o.quantity = o.quantity.Sub(quantity)
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// Sequence returns the arrival sequence assigned by the book. Time priority
// within a price level is decided by this value alone.
func (o *Order) Sequence() uint64 {
	return o.seq
}

// TIF returns tif field
func (o *Order) TIF() TIF {
	return o.tif
}

func (o *Order) setSequence(seq uint64) {
	o.seq = seq
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ID          string `json:"id"`
		Symbol      string `json:"symbol"`
		Side        string `json:"side"`
		Quantity    string `json:"quantity"`
		OriginalQty string `json:"originalQty"`
		Price       string `json:"price"`
		Sequence    uint64 `json:"sequence"`
		TIF         TIF    `json:"tif"`
	}

	return json.Marshal(OrderJSON{
		ID:          o.id,
		Symbol:      o.symbol,
		Side:        o.side.String(),
		Quantity:    o.quantity.String(),
		OriginalQty: o.originalQty.String(),
		Price:       o.price.String(),
		Sequence:    o.seq,
		TIF:         o.tif,
	})
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
