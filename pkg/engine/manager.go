package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/logging"
	"github.com/erain9/limitbook/pkg/messaging"
)

var (
	// ErrBookExists is returned when creating a book for a symbol that already has one
	ErrBookExists = errors.New("order book for this symbol already exists")

	// ErrBookNotFound is returned when accessing a symbol with no order book
	ErrBookNotFound = errors.New("order book not found")
)

// BookInfo contains metadata about one symbol's order book
type BookInfo struct {
	Symbol     string
	CreatedAt  time.Time
	OrderCount int
}

// Manager owns one independent OrderBook per symbol. Books share nothing;
// commands for different symbols never contend.
type Manager struct {
	mu     sync.RWMutex
	books  map[string]*core.OrderBook
	info   map[string]*BookInfo
	sender messaging.MessageSender
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMessageSender wires every created book to one execution-report sender.
func WithMessageSender(sender messaging.MessageSender) ManagerOption {
	return func(m *Manager) {
		m.sender = sender
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		books: make(map[string]*core.OrderBook),
		info:  make(map[string]*BookInfo),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateBook creates the order book for a symbol.
func (m *Manager) CreateBook(ctx context.Context, symbol string, opts ...core.Option) (*BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("symbol", symbol).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[symbol]; exists {
		logger.Error().Msg("Order book already exists")
		return nil, ErrBookExists
	}

	if m.sender != nil {
		opts = append([]core.Option{core.WithMessageSender(m.sender)}, opts...)
	}
	book := core.NewOrderBook(symbol, opts...)

	m.books[symbol] = book
	info := &BookInfo{
		Symbol:    symbol,
		CreatedAt: time.Now(),
	}
	m.info[symbol] = info

	logger.Info().Msg("Created order book")
	return info, nil
}

// GetBook retrieves the order book for a symbol.
func (m *Manager) GetBook(ctx context.Context, symbol string) (*core.OrderBook, *BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("symbol", symbol).Logger()

	m.mu.RLock()
	defer m.mu.RUnlock()

	book, exists := m.books[symbol]
	if !exists {
		logger.Debug().Msg("Order book not found")
		return nil, nil, ErrBookNotFound
	}

	return book, m.info[symbol], nil
}

// getOrCreate is the command path: unknown symbols get a book on first use.
func (m *Manager) getOrCreate(ctx context.Context, symbol string) *core.OrderBook {
	m.mu.RLock()
	book, exists := m.books[symbol]
	m.mu.RUnlock()
	if exists {
		return book
	}

	if _, err := m.CreateBook(ctx, symbol); err != nil && err != ErrBookExists {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[symbol]
}

// InsertOrder routes an insert command to its symbol's book.
func (m *Manager) InsertOrder(ctx context.Context, order *core.Order) (*core.Done, error) {
	if order == nil {
		return nil, core.ErrInvalidArgument
	}
	book := m.getOrCreate(ctx, order.Symbol())
	if book == nil {
		return nil, ErrBookNotFound
	}
	done, err := book.Insert(ctx, order)
	if err == nil {
		m.refreshCount(order.Symbol(), book.OrderCount())
	}
	return done, err
}

// CancelOrder routes a cancel command to its symbol's book.
func (m *Manager) CancelOrder(ctx context.Context, symbol, orderID string) (core.Order, error) {
	book, _, err := m.GetBook(ctx, symbol)
	if err != nil {
		return core.Order{}, err
	}
	canceled, err := book.Cancel(ctx, orderID)
	if err == nil {
		m.refreshCount(symbol, book.OrderCount())
	}
	return canceled, err
}

// ModifyOrder routes a modify command to its symbol's book.
func (m *Manager) ModifyOrder(ctx context.Context, symbol, orderID string, newPrice, newQuantity fpdecimal.Decimal) (*core.Done, error) {
	book, _, err := m.GetBook(ctx, symbol)
	if err != nil {
		return nil, err
	}
	done, err := book.Modify(ctx, orderID, newPrice, newQuantity)
	if err == nil {
		m.refreshCount(symbol, book.OrderCount())
	}
	return done, err
}

func (m *Manager) refreshCount(symbol string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, exists := m.info[symbol]; exists {
		info.OrderCount = count
	}
}

// DeleteBook removes a symbol's order book.
func (m *Manager) DeleteBook(ctx context.Context, symbol string) error {
	logger := logging.FromContext(ctx).With().Str("symbol", symbol).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[symbol]; !exists {
		logger.Debug().Msg("Order book not found")
		return ErrBookNotFound
	}

	delete(m.books, symbol)
	delete(m.info, symbol)

	logger.Info().Msg("Deleted order book")
	return nil
}

// ListBooks returns metadata for every live order book.
func (m *Manager) ListBooks(ctx context.Context) []*BookInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*BookInfo, 0, len(m.info))
	for _, info := range m.info {
		result = append(result, info)
	}
	return result
}

// Close releases every book and the shared sender.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.books = make(map[string]*core.OrderBook)
	m.info = make(map[string]*BookInfo)

	if m.sender != nil {
		_ = m.sender.Close()
	}
}
