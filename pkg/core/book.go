package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/erain9/limitbook/pkg/messaging"
	"github.com/erain9/limitbook/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TradePricePolicy decides the execution price when two limit orders match.
type TradePricePolicy int

const (
	// PriceEarlierArrival prices each execution at the limit price of the
	// order that arrived first. In the usual case of an aggressor sweeping
	// resting liquidity this is the passive order's price.
	PriceEarlierArrival TradePricePolicy = iota
	// PriceBestAsk always prices at the ask order's limit, matching the
	// convention of venues that publish ask-priced executions.
	PriceBestAsk
)

// TopOfBook is a point-in-time view of one side's best level.
type TopOfBook struct {
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
	Orders   int
}

// Option configures an OrderBook.
type Option func(*OrderBook)

// WithMessageSender sets the execution-report publisher. Publishing is
// best-effort; a failed send never fails the command that produced it.
func WithMessageSender(sender messaging.MessageSender) Option {
	return func(ob *OrderBook) {
		ob.sender = sender
	}
}

// WithTradePricePolicy overrides the default PriceEarlierArrival policy.
func WithTradePricePolicy(policy TradePricePolicy) Option {
	return func(ob *OrderBook) {
		ob.pricePolicy = policy
	}
}

// OrderBook is a single-instrument limit order book with continuous
// price-time-priority matching. Every command is applied as one indivisible
// unit under a single-writer lock; matching is pure in-memory computation
// and never blocks on I/O.
type OrderBook struct {
	mu sync.Mutex

	symbol string
	bids   *bookSide
	asks   *bookSide
	index  map[string]*orderNode

	arrivalSeq uint64
	matchSeq   uint64

	pricePolicy TradePricePolicy
	sender      messaging.MessageSender
}

// NewOrderBook creates an empty book for one symbol.
func NewOrderBook(symbol string, opts ...Option) *OrderBook {
	ob := &OrderBook{
		symbol: symbol,
		bids:   newBookSide(Buy),
		asks:   newBookSide(Sell),
		index:  make(map[string]*orderNode),
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// Symbol returns the instrument this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// Insert accepts a new order, assigns its arrival sequence, executes it
// against resting contra liquidity while marketable, and rests any GTC
// remainder at the tail of its price level. An IOC remainder is canceled
// instead of resting.
func (ob *OrderBook) Insert(ctx context.Context, order *Order) (*Done, error) {
	if order == nil {
		return nil, ErrInvalidArgument
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanInsertOrder,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSymbol, order.Symbol()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderQuantity, order.Quantity().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer span.End()

	if order.Quantity().LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, ErrInvalidQuantity
	}
	if order.Price().LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid price")
		return nil, ErrInvalidPrice
	}
	if order.Symbol() != ob.symbol {
		span.SetStatus(codes.Error, "symbol mismatch")
		return nil, ErrSymbolMismatch
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	if _, exists := ob.index[order.ID()]; exists {
		span.SetStatus(codes.Error, "order already exists")
		return nil, ErrOrderExists
	}

	order.setSequence(ob.nextArrival())
	done := newDone(order)

	start := time.Now()
	ob.sweep(order, done)
	metrics := otel.GetOrderBookMetrics()
	metrics.RecordMatchDuration(ctx, ob.symbol, time.Since(start).Seconds())

	stored := false
	if order.Quantity().GreaterThan(fpdecimal.Zero) {
		if order.TIF() == IOC {
			done.appendCanceled(order)
			order.SetQuantity(fpdecimal.Zero)
		} else {
			ob.rest(order)
			stored = true
		}
	}
	done.settle(order.Quantity(), stored)

	metrics.RecordCommand(ctx, "insert", ob.symbol)
	metrics.RecordTrades(ctx, ob.symbol, int64(len(done.Trades)))
	ob.publish(ctx, done)

	otel.AddAttributes(span,
		attribute.String(otel.AttributeExecutedQuantity, done.Processed.String()),
		attribute.String(otel.AttributeRemainingQuantity, done.Left.String()),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
	)
	span.SetStatus(codes.Ok, "order inserted")

	return done, nil
}

// Cancel removes a resting order from its price level and the index. It has
// no matching side effect.
func (ob *OrderBook) Cancel(ctx context.Context, orderID string) (Order, error) {
	_, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeOrderID, orderID),
	)
	defer span.End()

	ob.mu.Lock()
	defer ob.mu.Unlock()

	node, exists := ob.index[orderID]
	if !exists {
		span.SetStatus(codes.Error, "nonexistent order")
		return Order{}, ErrNonexistentOrder
	}

	canceled := *node.order
	ob.removeNode(node)

	otel.GetOrderBookMetrics().RecordCommand(ctx, "cancel", ob.symbol)
	span.SetStatus(codes.Ok, "order canceled")

	return canceled, nil
}

// Modify amends a resting order atomically. A quantity-only amendment keeps
// the order's arrival sequence and position; a price change re-appends the
// order at the tail of the new level with a fresh sequence and then runs the
// continuous matching pass, since the new price may cross.
func (ob *OrderBook) Modify(ctx context.Context, orderID string, newPrice, newQuantity fpdecimal.Decimal) (*Done, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanModifyOrder,
		attribute.String(otel.AttributeOrderID, orderID),
		attribute.String(otel.AttributeOrderQuantity, newQuantity.String()),
		attribute.String(otel.AttributeOrderPrice, newPrice.String()),
	)
	defer span.End()

	if newQuantity.LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, ErrInvalidQuantity
	}
	if newPrice.LessThanOrEqual(fpdecimal.Zero) {
		span.SetStatus(codes.Error, "invalid price")
		return nil, ErrInvalidPrice
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	node, exists := ob.index[orderID]
	if !exists {
		span.SetStatus(codes.Error, "nonexistent order")
		return nil, ErrNonexistentOrder
	}

	metrics := otel.GetOrderBookMetrics()

	if node.order.Price().Equal(newPrice) {
		// In-place amendment: time priority is preserved.
		delta := newQuantity.Sub(node.order.Quantity())
		node.order.SetQuantity(newQuantity)
		node.level.adjust(delta)

		done := newDone(node.order)
		done.settle(newQuantity, true)

		metrics.RecordCommand(ctx, "modify", ob.symbol)
		span.SetStatus(codes.Ok, "order amended in place")
		return done, nil
	}

	// Price change: build the replacement record first, then remove the old
	// node and append the replacement as one step. Nothing reads the old
	// storage location after the removal.
	replacement, err := NewOrder(orderID, ob.symbol, node.order.Side(), newQuantity, newPrice, node.order.TIF())
	if err != nil {
		span.SetStatus(codes.Error, "invalid replacement order")
		return nil, err
	}

	ob.removeNode(node)
	replacement.setSequence(ob.nextArrival())
	ob.rest(replacement)

	done := newDone(replacement)

	start := time.Now()
	ob.matchBook(done)
	metrics.RecordMatchDuration(ctx, ob.symbol, time.Since(start).Seconds())

	_, resting := ob.index[orderID]
	done.settle(replacement.Quantity(), resting)

	metrics.RecordCommand(ctx, "modify", ob.symbol)
	metrics.RecordTrades(ctx, ob.symbol, int64(len(done.Trades)))
	ob.publish(ctx, done)

	otel.AddAttributes(span,
		attribute.String(otel.AttributeExecutedQuantity, done.Processed.String()),
		attribute.String(otel.AttributeRemainingQuantity, done.Left.String()),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
	)
	span.SetStatus(codes.Ok, "order moved")

	return done, nil
}

// GetOrder returns a snapshot of a resting order by ID.
func (ob *OrderBook) GetOrder(orderID string) (Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	node, exists := ob.index[orderID]
	if !exists {
		return Order{}, ErrNonexistentOrder
	}
	return *node.order, nil
}

// BestBid returns the highest bid level, or false if the side is empty.
func (ob *OrderBook) BestBid() (TopOfBook, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return topOfBook(ob.bids)
}

// BestAsk returns the lowest ask level, or false if the side is empty.
func (ob *OrderBook) BestAsk() (TopOfBook, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return topOfBook(ob.asks)
}

func topOfBook(side *bookSide) (TopOfBook, bool) {
	level := side.best()
	if level == nil {
		return TopOfBook{}, false
	}
	return TopOfBook{
		Price:    level.price,
		Quantity: level.totalQty,
		Orders:   level.count,
	}, true
}

// OrderCount returns the number of resting orders.
func (ob *OrderBook) OrderCount() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.index)
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	builder := strings.Builder{}
	builder.WriteString("Ask:")
	builder.WriteString(ob.asks.String())
	builder.WriteString("\nBid:")
	builder.WriteString(ob.bids.String())
	builder.WriteString("\n")
	return builder.String()
}

// private methods; callers hold ob.mu.

func (ob *OrderBook) nextArrival() uint64 {
	ob.arrivalSeq++
	return ob.arrivalSeq
}

func (ob *OrderBook) nextMatch() uint64 {
	ob.matchSeq++
	return ob.matchSeq
}

// rest appends the order at the tail of its side's price level and indexes
// its node.
func (ob *OrderBook) rest(order *Order) {
	side := ob.bids
	if order.Side() == Sell {
		side = ob.asks
	}
	ob.index[order.ID()] = side.append(order)
}

// removeNode unlinks a resting order and drops its index entry; the level is
// dropped by the side when it becomes empty.
func (ob *OrderBook) removeNode(node *orderNode) {
	side := ob.bids
	if node.order.Side() == Sell {
		side = ob.asks
	}
	delete(ob.index, node.order.ID())
	side.remove(node)
}

// sweep executes an incoming aggressor against the contra side, walking
// levels from the best price outward and consuming orders oldest-first,
// until the aggressor is filled, the contra side empties, or the next level
// is no longer marketable against the aggressor's limit.
func (ob *OrderBook) sweep(aggressor *Order, done *Done) {
	contra := ob.asks
	if aggressor.Side() == Sell {
		contra = ob.bids
	}

	for aggressor.Quantity().GreaterThan(fpdecimal.Zero) && !contra.empty() {
		level := contra.best()
		if !marketable(aggressor.Side(), aggressor.Price(), level.price) {
			return
		}

		node := level.head
		for node != nil && aggressor.Quantity().GreaterThan(fpdecimal.Zero) {
			next := node.next
			resting := node.order

			quantity := minDecimal(aggressor.Quantity(), resting.Quantity())
			price := ob.tradePrice(aggressor, resting)
			ob.recordTrade(done, aggressor, resting, price, quantity)

			aggressor.DecreaseQuantity(quantity)
			resting.DecreaseQuantity(quantity)
			level.reduce(quantity)

			if resting.Quantity().Equal(fpdecimal.Zero) {
				ob.removeNode(node)
			}
			node = next
		}
		// The outer loop re-reads best(): the level may have been dropped.
	}
}

// matchBook is the continuous auto-match pass: while the best bid crosses
// the best ask, trade the oldest order at each best level for the minimum of
// their quantities, removing emptied orders and levels, until no cross
// remains or a side empties.
func (ob *OrderBook) matchBook(done *Done) {
	for !ob.bids.empty() && !ob.asks.empty() {
		bidLevel := ob.bids.best()
		askLevel := ob.asks.best()
		if bidLevel.price.LessThan(askLevel.price) {
			return
		}

		bidNode := bidLevel.head
		askNode := askLevel.head
		buy := bidNode.order
		sell := askNode.order

		quantity := minDecimal(buy.Quantity(), sell.Quantity())
		price := ob.pairPrice(buy, sell)
		ob.recordTrade(done, buy, sell, price, quantity)

		buy.DecreaseQuantity(quantity)
		sell.DecreaseQuantity(quantity)
		bidLevel.reduce(quantity)
		askLevel.reduce(quantity)

		if buy.Quantity().Equal(fpdecimal.Zero) {
			ob.removeNode(bidNode)
		}
		if sell.Quantity().Equal(fpdecimal.Zero) {
			ob.removeNode(askNode)
		}
	}
}

func (ob *OrderBook) recordTrade(done *Done, a, b *Order, price, quantity fpdecimal.Decimal) {
	buy, sell := a, b
	if buy.Side() == Sell {
		buy, sell = b, a
	}
	done.appendTrade(buy, sell, price, quantity, ob.nextMatch())
}

// tradePrice prices a sweep execution: the resting order's limit under the
// default policy.
func (ob *OrderBook) tradePrice(aggressor, resting *Order) fpdecimal.Decimal {
	if ob.pricePolicy == PriceBestAsk {
		if aggressor.Side() == Buy {
			return resting.Price()
		}
		return aggressor.Price()
	}
	return resting.Price()
}

// pairPrice prices a continuous-match execution between two crossed resting
// orders: the earlier arrival's limit under the default policy.
func (ob *OrderBook) pairPrice(buy, sell *Order) fpdecimal.Decimal {
	if ob.pricePolicy == PriceBestAsk {
		return sell.Price()
	}
	if buy.Sequence() < sell.Sequence() {
		return buy.Price()
	}
	return sell.Price()
}

// publish sends the execution report downstream. Best-effort: failures are
// logged and never surface to the command that produced the report.
func (ob *OrderBook) publish(ctx context.Context, done *Done) {
	if ob.sender == nil {
		return
	}
	if len(done.Trades) == 0 && len(done.Canceled) == 0 {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishReport,
		attribute.String(otel.AttributeOrderID, done.Order.ID()),
		attribute.Int(otel.AttributeTradeCount, len(done.Trades)),
	)
	defer span.End()

	msg := done.ToMessagingDoneMessage()
	if msg == nil {
		span.SetStatus(codes.Error, "failed to convert execution report")
		return
	}

	if err := ob.sender.SendDoneMessage(ctx, msg); err != nil {
		span.SetStatus(codes.Error, "failed to publish execution report")
		log.Warn().Err(err).
			Str("symbol", ob.symbol).
			Str("order_id", done.Order.ID()).
			Msg("Failed to publish execution report")
		return
	}

	span.SetStatus(codes.Ok, "execution report published")
}

func minDecimal(a, b fpdecimal.Decimal) fpdecimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
