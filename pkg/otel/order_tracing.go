package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanDecodeCommand = "decode_command"
	SpanInsertOrder   = "insert_order"
	SpanCancelOrder   = "cancel_order"
	SpanModifyOrder   = "modify_order"
	SpanPublishReport = "publish_report"

	// Attribute keys
	AttributeOrderID           = "order.id"
	AttributeOrderSymbol       = "order.symbol"
	AttributeOrderSide         = "order.side"
	AttributeOrderQuantity     = "order.quantity"
	AttributeOrderPrice        = "order.price"
	AttributeExecutedQuantity  = "order.executed_quantity"
	AttributeRemainingQuantity = "order.remaining_quantity"
	AttributeTradeCount        = "trade.count"
)

// StartOrderSpan starts a new span for order processing
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer

	// Use appropriate tracer based on the span name
	switch name {
	case SpanDecodeCommand:
		tracer = GetGatewayTracer()
	case SpanInsertOrder, SpanCancelOrder, SpanModifyOrder, SpanPublishReport:
		tracer = GetMatchingEngineTracer()
	default:
		tracer = GetMatchingEngineTracer()
	}

	if tracer == nil {
		// No provider configured; hand back a non-recording span so call
		// sites never need nil checks.
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
