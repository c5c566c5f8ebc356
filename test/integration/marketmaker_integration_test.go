package integration

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/limitbook/pkg/engine"
	"github.com/erain9/limitbook/pkg/gateway"
	"github.com/erain9/limitbook/pkg/marketmaker"
	"github.com/erain9/limitbook/pkg/messaging"
)

// MockPriceFetcher implements the marketmaker.PriceFetcher interface for testing
type MockPriceFetcher struct {
	prices []float64
	index  int
}

func NewMockPriceFetcher(prices []float64) *MockPriceFetcher {
	return &MockPriceFetcher{
		prices: prices,
		index:  0,
	}
}

func (m *MockPriceFetcher) FetchPrice(ctx context.Context) (float64, error) {
	if m.index >= len(m.prices) {
		m.index = 0 // wrap around if we've gone through all prices
	}
	price := m.prices[m.index]
	m.index++
	return price, nil
}

func (m *MockPriceFetcher) Close() error {
	return nil
}

// enginePublisher feeds market maker commands straight into an in-process
// engine, the way the gateway would after decoding them off Kafka.
type enginePublisher struct {
	mu      sync.Mutex
	manager *engine.Manager
	placed  []string
}

func (p *enginePublisher) PublishCommand(ctx context.Context, cmd *gateway.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch cmd.Operation {
	case gateway.OpInsert:
		order, err := cmd.ToOrder()
		if err != nil {
			return err
		}
		if _, err := p.manager.InsertOrder(ctx, order); err != nil {
			return err
		}
		p.placed = append(p.placed, cmd.OrderID)
	case gateway.OpCancel:
		if _, err := p.manager.CancelOrder(ctx, cmd.Symbol, cmd.OrderID); err != nil {
			return err
		}
	}
	return nil
}

func (p *enginePublisher) Close() error { return nil }

func testMarketMakerConfig() *marketmaker.Config {
	return &marketmaker.Config{
		KafkaBrokerAddr:   "localhost:9092",
		CommandsTopic:     "order-commands",
		MarketSymbol:      "BTC-USDT",
		ExternalSymbol:    "BTCUSDT",
		PriceSourceURL:    "http://localhost",
		NumLevels:         3,
		BaseSpreadPercent: 0.2,
		PriceStepPercent:  0.1,
		OrderSize:         "0.5",
		UpdateInterval:    50 * time.Millisecond,
		MarketMakerID:     "mm-test",
		HTTPTimeout:       time.Second,
		MaxRetries:        1,
	}
}

// TestMarketMakerIntegration runs the full market maker loop against an
// in-process engine and verifies it builds a sane two-sided book.
func TestMarketMakerIntegration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testMarketMakerConfig()

	sender := messaging.NewMockMessageSender()
	manager := engine.NewManager(engine.WithMessageSender(sender))
	defer manager.Close()

	publisher := &enginePublisher{manager: manager}
	fetcher := NewMockPriceFetcher([]float64{50000.0})
	strategy := marketmaker.NewLayeredSymmetricQuoting(cfg, logger)

	mm, err := marketmaker.NewMarketMaker(cfg, logger, publisher, fetcher, strategy)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mm.Start(ctx))

	// Wait for a complete ladder; reads between cancel and re-quote see a
	// partial book, so poll for the steady state.
	require.Eventually(t, func() bool {
		book, _, err := manager.GetBook(ctx, cfg.MarketSymbol)
		if err != nil {
			return false
		}
		return book.OrderCount() == cfg.NumLevels*2
	}, 5*time.Second, 10*time.Millisecond, "expected a full quoting ladder")

	book, _, err := manager.GetBook(ctx, cfg.MarketSymbol)
	require.NoError(t, err)

	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	if hasBid && hasAsk {
		// Quotes straddle the reference price and never cross
		assert.True(t, bid.Price.LessThan(ask.Price), "best bid %s must be below best ask %s", bid.Price, ask.Price)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, mm.Stop(shutdownCtx))

	// Shutdown pulls the whole ladder
	assert.Equal(t, 0, book.OrderCount())

	// Symmetric quoting never trades against itself
	assert.Empty(t, sender.Messages(), "market maker quotes must not self-match")
}

// TestMarketMakerStrategyIntoEngine checks one strategy cycle lands all
// levels in the book without the run loop.
func TestMarketMakerStrategyIntoEngine(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testMarketMakerConfig()

	manager := engine.NewManager()
	defer manager.Close()
	publisher := &enginePublisher{manager: manager}

	strategy := marketmaker.NewLayeredSymmetricQuoting(cfg, logger)
	ctx := context.Background()

	commands, err := strategy.CalculateOrders(ctx, 50000.0)
	require.NoError(t, err)
	require.Len(t, commands, cfg.NumLevels*2)

	for _, cmd := range commands {
		require.NoError(t, publisher.PublishCommand(ctx, cmd))
	}

	book, _, err := manager.GetBook(ctx, cfg.MarketSymbol)
	require.NoError(t, err)
	assert.Equal(t, cfg.NumLevels*2, book.OrderCount())
	assert.Len(t, publisher.placed, cfg.NumLevels*2)
}
