package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/otel"
)

// Operation identifies an order-entry command type.
type Operation string

// Supported order-entry operations
const (
	OpInsert Operation = "INSERT"
	OpCancel Operation = "CANCEL"
	OpModify Operation = "MODIFY"
)

var (
	// ErrUnknownOperation is returned for an unrecognized operation field
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMalformedCommand is returned when required fields are missing or unparsable
	ErrMalformedCommand = errors.New("malformed command")
)

// Command is the JSON order-entry envelope consumed off the commands topic.
// Quantity and Price are decimal strings; the gateway parses and validates
// them before anything reaches a book.
type Command struct {
	Operation Operation `json:"operation"`
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side,omitempty"`
	Quantity  string    `json:"quantity,omitempty"`
	Price     string    `json:"price,omitempty"`
	TIF       string    `json:"tif,omitempty"`
}

// DecodeCommand parses and validates one command payload.
func DecodeCommand(ctx context.Context, data []byte) (*Command, error) {
	_, span := otel.StartOrderSpan(ctx, otel.SpanDecodeCommand)
	defer span.End()

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	cmd.Operation = Operation(strings.ToUpper(string(cmd.Operation)))
	switch cmd.Operation {
	case OpInsert, OpCancel, OpModify:
	default:
		span.SetStatus(codes.Error, "unknown operation")
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, cmd.Operation)
	}

	if cmd.OrderID == "" {
		span.SetStatus(codes.Error, "missing order_id")
		return nil, fmt.Errorf("%w: missing order_id", ErrMalformedCommand)
	}
	if cmd.Symbol == "" {
		span.SetStatus(codes.Error, "missing symbol")
		return nil, fmt.Errorf("%w: missing symbol", ErrMalformedCommand)
	}

	if cmd.Operation != OpCancel {
		if _, err := cmd.ParseQuantity(); err != nil {
			span.SetStatus(codes.Error, "invalid quantity")
			return nil, err
		}
		if _, err := cmd.ParsePrice(); err != nil {
			span.SetStatus(codes.Error, "invalid price")
			return nil, err
		}
	}

	otel.AddAttributes(span,
		attribute.String(otel.AttributeOrderID, cmd.OrderID),
		attribute.String(otel.AttributeOrderSymbol, cmd.Symbol),
	)
	span.SetStatus(codes.Ok, "command decoded")
	return &cmd, nil
}

// ParseQuantity parses the quantity field.
func (c *Command) ParseQuantity() (fpdecimal.Decimal, error) {
	quantity, err := fpdecimal.FromString(c.Quantity)
	if err != nil {
		return fpdecimal.Zero, fmt.Errorf("%w: quantity %q", ErrMalformedCommand, c.Quantity)
	}
	return quantity, nil
}

// ParsePrice parses the price field.
func (c *Command) ParsePrice() (fpdecimal.Decimal, error) {
	price, err := fpdecimal.FromString(c.Price)
	if err != nil {
		return fpdecimal.Zero, fmt.Errorf("%w: price %q", ErrMalformedCommand, c.Price)
	}
	return price, nil
}

// ToOrder converts an INSERT command into an order ready for a book.
func (c *Command) ToOrder() (*core.Order, error) {
	quantity, err := c.ParseQuantity()
	if err != nil {
		return nil, err
	}
	price, err := c.ParsePrice()
	if err != nil {
		return nil, err
	}

	var side core.Side
	switch strings.ToUpper(c.Side) {
	case "BUY":
		side = core.Buy
	case "SELL":
		side = core.Sell
	default:
		return nil, fmt.Errorf("%w: side %q", ErrMalformedCommand, c.Side)
	}

	return core.NewOrder(c.OrderID, c.Symbol, side, quantity, price, core.TIF(strings.ToUpper(c.TIF)))
}
