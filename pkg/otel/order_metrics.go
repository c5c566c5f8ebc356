package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/erain9/limitbook/pkg/otel"

var (
	// orderBookMetrics holds the singleton instance
	orderBookMetrics *OrderBookMetrics
	// meter is the global meter for order book metrics
	meter = otel.GetMeterProvider().Meter(instrumentationName)
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	// Commands accepted by the book, by operation (insert, cancel, modify)
	commandsTotal metric.Int64Counter
	// Trades executed by the matching engine
	tradesTotal metric.Int64Counter
	// Wall time of one matching pass
	matchDuration metric.Float64Histogram
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton
func GetOrderBookMetrics() *OrderBookMetrics {
	if orderBookMetrics == nil {
		commandsTotal, err := meter.Int64Counter(
			"orderbook.commands.total",
			metric.WithDescription("Total number of order-entry commands accepted"),
			metric.WithUnit("{command}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		tradesTotal, err := meter.Int64Counter(
			"orderbook.trades.total",
			metric.WithDescription("Total number of trades executed"),
			metric.WithUnit("{trade}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		matchDuration, err := meter.Float64Histogram(
			"orderbook.match.duration",
			metric.WithDescription("Duration of one matching pass"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		orderBookMetrics = &OrderBookMetrics{
			commandsTotal: commandsTotal,
			tradesTotal:   tradesTotal,
			matchDuration: matchDuration,
		}
	}

	return orderBookMetrics
}

// RecordCommand increments the accepted-command counter
func (m *OrderBookMetrics) RecordCommand(ctx context.Context, operation, symbol string) {
	if m.commandsTotal == nil {
		return
	}

	m.commandsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command.operation", operation),
		attribute.String("order.symbol", symbol),
	))
}

// RecordTrades increments the trade counter
func (m *OrderBookMetrics) RecordTrades(ctx context.Context, symbol string, count int64) {
	if m.tradesTotal == nil || count == 0 {
		return
	}

	m.tradesTotal.Add(ctx, count, metric.WithAttributes(
		attribute.String("order.symbol", symbol),
	))
}

// RecordMatchDuration records the wall time of one matching pass
func (m *OrderBookMetrics) RecordMatchDuration(ctx context.Context, symbol string, seconds float64) {
	if m.matchDuration == nil {
		return
	}

	m.matchDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("order.symbol", symbol),
	))
}
