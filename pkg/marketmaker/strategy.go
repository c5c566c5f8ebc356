package marketmaker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/erain9/limitbook/pkg/gateway"
)

// LayeredSymmetricQuoting implements a symmetric market making strategy with multiple price levels
type LayeredSymmetricQuoting struct {
	cfg    *Config
	logger *slog.Logger
}

// NewLayeredSymmetricQuoting creates a new LayeredSymmetricQuoting strategy
func NewLayeredSymmetricQuoting(cfg *Config, logger *slog.Logger) MarketMakerStrategy {
	return &LayeredSymmetricQuoting{
		cfg:    cfg,
		logger: logger.With("component", "LayeredSymmetricQuoting"),
	}
}

// CalculateOrders implements MarketMakerStrategy
func (s *LayeredSymmetricQuoting) CalculateOrders(ctx context.Context, currentPrice float64) ([]*gateway.Command, error) {
	baseHalfSpread := currentPrice * (s.cfg.BaseSpreadPercent / 2 / 100)
	priceStep := currentPrice * (s.cfg.PriceStepPercent / 100)

	// Buy and sell command per level
	orders := make([]*gateway.Command, 0, s.cfg.NumLevels*2)

	timestamp := time.Now().UnixNano()

	for i := 1; i <= s.cfg.NumLevels; i++ {
		bidPrice := currentPrice - baseHalfSpread - float64(i-1)*priceStep
		askPrice := currentPrice + baseHalfSpread + float64(i-1)*priceStep

		// Prices are quoted at the book's 3-decimal precision.
		bidPriceStr := strconv.FormatFloat(math.Round(bidPrice*1e3)/1e3, 'f', 3, 64)
		askPriceStr := strconv.FormatFloat(math.Round(askPrice*1e3)/1e3, 'f', 3, 64)

		orders = append(orders, &gateway.Command{
			Operation: gateway.OpInsert,
			OrderID:   fmt.Sprintf("%s-buy-%d-%d", s.cfg.MarketMakerID, i, timestamp),
			Symbol:    s.cfg.MarketSymbol,
			Side:      "BUY",
			Quantity:  s.cfg.OrderSize,
			Price:     bidPriceStr,
			TIF:       "GTC",
		})
		orders = append(orders, &gateway.Command{
			Operation: gateway.OpInsert,
			OrderID:   fmt.Sprintf("%s-sell-%d-%d", s.cfg.MarketMakerID, i, timestamp),
			Symbol:    s.cfg.MarketSymbol,
			Side:      "SELL",
			Quantity:  s.cfg.OrderSize,
			Price:     askPriceStr,
			TIF:       "GTC",
		})

		s.logger.Debug("Calculated order pair",
			"level", i,
			"bid_price", bidPriceStr,
			"ask_price", askPriceStr,
			"quantity", s.cfg.OrderSize)
	}

	return orders, nil
}
