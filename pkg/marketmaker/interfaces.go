package marketmaker

import (
	"context"

	"github.com/erain9/limitbook/pkg/gateway"
)

// PriceFetcher defines the interface for fetching current market prices
type PriceFetcher interface {
	// FetchPrice returns the current market price for the configured symbol
	FetchPrice(ctx context.Context) (float64, error)
	// Close releases any resources held by the price fetcher
	Close() error
}

// CommandPublisher defines the interface for submitting order-entry commands
type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd *gateway.Command) error
	Close() error
}

// MarketMakerStrategy defines the interface for market making strategies
type MarketMakerStrategy interface {
	// CalculateOrders calculates the orders to be placed based on the current price
	CalculateOrders(ctx context.Context, currentPrice float64) ([]*gateway.Command, error)
}
