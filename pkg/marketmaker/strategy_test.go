package marketmaker

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"

	"github.com/erain9/limitbook/pkg/gateway"
)

func TestMarketMakerStrategy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config := &Config{
		MarketSymbol:      "BTC-USDT",
		NumLevels:         3,
		BaseSpreadPercent: 0.1,    // 0.1%
		PriceStepPercent:  0.05,   // 0.05%
		OrderSize:         "0.010",
		MarketMakerID:     "test-mm",
	}

	strategy := NewLayeredSymmetricQuoting(config, logger)

	t.Run("Basic order creation", func(t *testing.T) {
		ctx := context.Background()
		orders, err := strategy.CalculateOrders(ctx, 50000.0)
		if err != nil {
			t.Fatalf("CalculateOrders failed: %v", err)
		}

		if len(orders) != 6 {
			t.Errorf("Expected 6 orders (3 bids + 3 asks), got %d", len(orders))
		}

		if orders[0].Side != "BUY" {
			t.Errorf("Expected first order to be a buy order, got %s", orders[0].Side)
		}
		if orders[1].Side != "SELL" {
			t.Errorf("Expected second order to be a sell order, got %s", orders[1].Side)
		}

		for _, order := range orders {
			if order.Operation != gateway.OpInsert {
				t.Errorf("Expected INSERT operation, got %s", order.Operation)
			}
			if order.TIF != "GTC" {
				t.Errorf("Expected GTC, got %s", order.TIF)
			}
			if order.Symbol != "BTC-USDT" {
				t.Errorf("Expected symbol BTC-USDT, got %s", order.Symbol)
			}
		}
	})

	t.Run("Spread straddles the reference price", func(t *testing.T) {
		ctx := context.Background()
		orders, err := strategy.CalculateOrders(ctx, 50000.0)
		if err != nil {
			t.Fatalf("CalculateOrders failed: %v", err)
		}

		var bestBid, bestAsk float64
		for _, order := range orders {
			price, err := strconv.ParseFloat(order.Price, 64)
			if err != nil {
				t.Fatalf("Unparsable price %q: %v", order.Price, err)
			}
			if order.Side == "BUY" {
				if price > bestBid {
					bestBid = price
				}
				if price >= 50000.0 {
					t.Errorf("Bid %f must be below the reference price", price)
				}
			} else {
				if bestAsk == 0 || price < bestAsk {
					bestAsk = price
				}
				if price <= 50000.0 {
					t.Errorf("Ask %f must be above the reference price", price)
				}
			}
		}
		if bestBid >= bestAsk {
			t.Errorf("Quotes crossed: best bid %f >= best ask %f", bestBid, bestAsk)
		}
	})

	t.Run("Levels widen outward", func(t *testing.T) {
		ctx := context.Background()
		orders, err := strategy.CalculateOrders(ctx, 1000.0)
		if err != nil {
			t.Fatalf("CalculateOrders failed: %v", err)
		}

		// Orders alternate buy/sell per level; bids descend, asks ascend.
		var lastBid, lastAsk float64
		for i := 0; i < len(orders); i += 2 {
			bid, _ := strconv.ParseFloat(orders[i].Price, 64)
			ask, _ := strconv.ParseFloat(orders[i+1].Price, 64)
			if lastBid != 0 && bid >= lastBid {
				t.Errorf("Expected bids to descend, got %f after %f", bid, lastBid)
			}
			if lastAsk != 0 && ask <= lastAsk {
				t.Errorf("Expected asks to ascend, got %f after %f", ask, lastAsk)
			}
			lastBid, lastAsk = bid, ask
		}
	})
}
