package core

import (
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
)

// orderNode is the stable handle to a resting order: an intrusive list node
// inside its price level. The order index maps order IDs to these nodes so
// cancel and modify never scan a level.
type orderNode struct {
	order *Order
	level *priceLevel
	next  *orderNode
	prev  *orderNode
}

// priceLevel holds the FIFO queue of orders resting at one price. Orders are
// appended at the tail and matched from the head; priority within the level
// is strictly by arrival sequence.
type priceLevel struct {
	price    fpdecimal.Decimal
	priceStr string
	head     *orderNode
	tail     *orderNode
	count    int
	totalQty fpdecimal.Decimal
	next     *priceLevel
	prev     *priceLevel
}

func newPriceLevel(price fpdecimal.Decimal) *priceLevel {
	return &priceLevel{
		price:    price,
		priceStr: price.String(),
	}
}

// push appends the order at the tail of the level.
func (pl *priceLevel) push(order *Order) *orderNode {
	node := &orderNode{order: order, level: pl}
	if pl.tail == nil {
		pl.head = node
		pl.tail = node
	} else {
		node.prev = pl.tail
		pl.tail.next = node
		pl.tail = node
	}
	pl.count++
	pl.totalQty = pl.totalQty.Add(order.Quantity())
	return node
}

// unlink removes the node from the level's queue.
func (pl *priceLevel) unlink(node *orderNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		pl.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		pl.tail = node.prev
	}
	node.next = nil
	node.prev = nil
	node.level = nil
	pl.count--
	pl.totalQty = pl.totalQty.Sub(node.order.Quantity())
}

// reduce lowers the level's aggregate after a fill decremented a resting
// order's quantity in place.
func (pl *priceLevel) reduce(quantity fpdecimal.Decimal) {
	pl.totalQty = pl.totalQty.Sub(quantity)
}

// adjust updates the aggregate when an in-place quantity amendment keeps the
// order at this level.
func (pl *priceLevel) adjust(delta fpdecimal.Decimal) {
	pl.totalQty = pl.totalQty.Add(delta)
}

func (pl *priceLevel) empty() bool {
	return pl.head == nil
}

// bookSide is a price-ordered doubly-linked list of price levels with a map
// from price to level for O(1) level lookup. Bids are kept descending so the
// best (highest) bid is at the head; asks ascending so the best (lowest) ask
// is at the head.
type bookSide struct {
	side   Side
	head   *priceLevel
	tail   *priceLevel
	levels map[string]*priceLevel
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: make(map[string]*priceLevel),
	}
}

func (bs *bookSide) empty() bool {
	return bs.head == nil
}

// best returns the head level: highest price for bids, lowest for asks.
func (bs *bookSide) best() *priceLevel {
	return bs.head
}

// append adds the order at the tail of its price level, creating and
// ordering the level if this is the first order at that price.
func (bs *bookSide) append(order *Order) *orderNode {
	price := order.Price()
	priceStr := price.String()

	if level, ok := bs.levels[priceStr]; ok {
		return level.push(order)
	}

	level := newPriceLevel(price)
	node := level.push(order)
	bs.levels[priceStr] = level

	if bs.head == nil {
		bs.head = level
		bs.tail = level
		return node
	}

	if bs.better(price, bs.head.price) {
		level.next = bs.head
		bs.head.prev = level
		bs.head = level
		return node
	}

	if !bs.better(price, bs.tail.price) {
		level.prev = bs.tail
		bs.tail.next = level
		bs.tail = level
		return node
	}

	current := bs.head
	for current != nil && !bs.better(price, current.price) {
		current = current.next
	}
	level.next = current
	level.prev = current.prev
	current.prev.next = level
	current.prev = level
	return node
}

// remove unlinks the order node and drops the level if it became empty.
func (bs *bookSide) remove(node *orderNode) {
	level := node.level
	level.unlink(node)
	if level.empty() {
		bs.dropLevel(level)
	}
}

func (bs *bookSide) dropLevel(level *priceLevel) {
	delete(bs.levels, level.priceStr)
	if level.prev != nil {
		level.prev.next = level.next
	} else {
		bs.head = level.next
	}
	if level.next != nil {
		level.next.prev = level.prev
	} else {
		bs.tail = level.prev
	}
	level.next = nil
	level.prev = nil
}

// better reports whether price a has strictly better priority than b on this
// side: higher for bids, lower for asks.
func (bs *bookSide) better(a, b fpdecimal.Decimal) bool {
	if bs.side == Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// marketable reports whether an aggressor limited at limit may trade against
// a resting level at levelPrice on this side's contra book.
func marketable(aggressorSide Side, limit, levelPrice fpdecimal.Decimal) bool {
	if aggressorSide == Buy {
		return limit.GreaterThanOrEqual(levelPrice)
	}
	return limit.LessThanOrEqual(levelPrice)
}

// String implements fmt.Stringer interface
func (bs *bookSide) String() string {
	sb := strings.Builder{}
	for level := bs.head; level != nil; level = level.next {
		sb.WriteString(fmt.Sprintf("\n%s -> orders: %d, qty: %s", level.priceStr, level.count, level.totalQty.String()))
	}
	return sb.String()
}
