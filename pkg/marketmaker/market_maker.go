package marketmaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erain9/limitbook/pkg/gateway"
)

// MarketMaker quotes a symmetric ladder around an external reference price,
// refreshing its orders on a fixed interval through the command topic.
type MarketMaker struct {
	cfg          *Config
	logger       *slog.Logger
	publisher    CommandPublisher
	priceFetcher PriceFetcher
	strategy     MarketMakerStrategy
	activeOrders sync.Map // map[string]bool - tracks active order IDs
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewMarketMaker creates a new market maker service
func NewMarketMaker(cfg *Config, logger *slog.Logger, publisher CommandPublisher, priceFetcher PriceFetcher, strategy MarketMakerStrategy) (*MarketMaker, error) {
	return &MarketMaker{
		cfg:          cfg,
		logger:       logger.With("component", "MarketMaker"),
		publisher:    publisher,
		priceFetcher: priceFetcher,
		strategy:     strategy,
		stopCh:       make(chan struct{}),
	}, nil
}

// Start begins the market making process
func (m *MarketMaker) Start(ctx context.Context) error {
	m.logger.Info("Starting market maker service",
		"market_symbol", m.cfg.MarketSymbol,
		"update_interval", m.cfg.UpdateInterval)

	m.wg.Add(1)
	go m.run(ctx)

	return nil
}

// Stop gracefully shuts down the market maker
func (m *MarketMaker) Stop(ctx context.Context) error {
	m.logger.Info("Stopping market maker service")

	close(m.stopCh)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Market maker stopped successfully")
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for market maker to stop: %w", ctx.Err())
	}

	// Pull our remaining quotes before leaving.
	if err := m.cancelAllOrders(ctx); err != nil {
		m.logger.Error("Failed to cancel all orders during shutdown", "error", err)
		return fmt.Errorf("failed to cancel orders during shutdown: %w", err)
	}

	return nil
}

// run is the main market making loop
func (m *MarketMaker) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Context cancelled, stopping market maker loop")
			return
		case <-m.stopCh:
			m.logger.Info("Stop signal received, stopping market maker loop")
			return
		case <-ticker.C:
			if err := m.updateOrders(ctx); err != nil {
				m.logger.Error("Failed to update orders", "error", err)
				// Continue running despite errors
			}
		}
	}
}

// updateOrders performs a single iteration of the market making process
func (m *MarketMaker) updateOrders(ctx context.Context) error {
	price, err := m.priceFetcher.FetchPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}

	orders, err := m.strategy.CalculateOrders(ctx, price)
	if err != nil {
		return fmt.Errorf("failed to calculate orders: %w", err)
	}

	// Re-quote from a clean book: cancel the previous ladder first.
	if err := m.cancelAllOrders(ctx); err != nil {
		return fmt.Errorf("failed to cancel existing orders: %w", err)
	}

	for _, order := range orders {
		if err := m.publisher.PublishCommand(ctx, order); err != nil {
			m.logger.Error("Failed to place order",
				"order_id", order.OrderID,
				"side", order.Side,
				"price", order.Price,
				"error", err)
			continue
		}

		m.activeOrders.Store(order.OrderID, true)

		m.logger.Debug("Successfully placed order",
			"order_id", order.OrderID,
			"side", order.Side,
			"price", order.Price)
	}

	return nil
}

// cancelAllOrders cancels all tracked active orders
func (m *MarketMaker) cancelAllOrders(ctx context.Context) error {
	var lastErr error
	m.activeOrders.Range(func(key, _ interface{}) bool {
		orderID := key.(string)
		cmd := &gateway.Command{
			Operation: gateway.OpCancel,
			OrderID:   orderID,
			Symbol:    m.cfg.MarketSymbol,
		}

		if err := m.publisher.PublishCommand(ctx, cmd); err != nil {
			m.logger.Error("Failed to cancel order",
				"order_id", orderID,
				"error", err)
			lastErr = err
			// Continue canceling other orders even if one fails
			return true
		}

		m.activeOrders.Delete(orderID)
		m.logger.Debug("Successfully cancelled order", "order_id", orderID)
		return true
	})

	return lastErr
}
