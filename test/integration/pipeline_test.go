package integration

import (
	"context"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/limitbook/pkg/engine"
	"github.com/erain9/limitbook/pkg/gateway"
	"github.com/erain9/limitbook/pkg/marketdata"
	"github.com/erain9/limitbook/pkg/messaging"
)

// setupPipeline wires a manager with a mock report sender, the same shape the
// gateway drives in production minus the Kafka consumer loop.
func setupPipeline(tb testing.TB) (*engine.Manager, *messaging.MockMessageSender) {
	tb.Helper()

	sender := messaging.NewMockMessageSender()
	manager := engine.NewManager(engine.WithMessageSender(sender))
	tb.Cleanup(manager.Close)
	return manager, sender
}

// applyCommand decodes one raw payload and routes it the way the gateway does.
func applyCommand(t *testing.T, manager *engine.Manager, payload string) {
	t.Helper()
	ctx := context.Background()

	cmd, err := gateway.DecodeCommand(ctx, []byte(payload))
	require.NoError(t, err, "failed to decode command: %s", payload)

	switch cmd.Operation {
	case gateway.OpInsert:
		order, err := cmd.ToOrder()
		require.NoError(t, err)
		_, err = manager.InsertOrder(ctx, order)
		require.NoError(t, err)
	case gateway.OpCancel:
		_, err = manager.CancelOrder(ctx, cmd.Symbol, cmd.OrderID)
		require.NoError(t, err)
	case gateway.OpModify:
		price, err := cmd.ParsePrice()
		require.NoError(t, err)
		quantity, err := cmd.ParseQuantity()
		require.NoError(t, err)
		_, err = manager.ModifyOrder(ctx, cmd.Symbol, cmd.OrderID, price, quantity)
		require.NoError(t, err)
	}
}

func TestPipeline_InsertMatchAndReport(t *testing.T) {
	manager, sender := setupPipeline(t)
	ctx := context.Background()

	applyCommand(t, manager, `{"operation":"INSERT","order_id":"s1","symbol":"AAPL","side":"SELL","quantity":"5","price":"100.5"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"b1","symbol":"AAPL","side":"BUY","quantity":"3","price":"100.5"}`)

	// Resting alone produces no report; the trade does.
	messages := sender.Messages()
	require.Len(t, messages, 1)

	assert.Equal(t, "b1", messages[0].OrderID)
	assert.False(t, messages[0].Stored)
	require.Len(t, messages[0].Trades, 1)
	assert.Equal(t, "b1", messages[0].Trades[0].BuyOrderID)
	assert.Equal(t, "s1", messages[0].Trades[0].SellOrderID)
	assert.Equal(t, "100.500", messages[0].Trades[0].Price)
	assert.Equal(t, "3.000", messages[0].Trades[0].Quantity)

	// The sell's remainder is still resting
	book, _, err := manager.GetBook(ctx, "AAPL")
	require.NoError(t, err)
	best, ok := book.BestAsk()
	require.True(t, ok)
	assert.Equal(t, fpdecimal.FromFloat(2.0).String(), best.Quantity.String())
}

func TestPipeline_ModifyAndCancel(t *testing.T) {
	manager, sender := setupPipeline(t)
	ctx := context.Background()

	applyCommand(t, manager, `{"operation":"INSERT","order_id":"b1","symbol":"AAPL","side":"BUY","quantity":"10","price":"99.0"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"s1","symbol":"AAPL","side":"SELL","quantity":"4","price":"101.0"}`)

	// Reprice the buy across the spread; it should trade against the sell
	applyCommand(t, manager, `{"operation":"MODIFY","order_id":"b1","symbol":"AAPL","quantity":"10","price":"101.0"}`)

	messages := sender.Messages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Trades, 1)
	assert.Equal(t, "4.000", messages[0].Trades[0].Quantity)

	// Cancel the remainder and verify the book empties
	applyCommand(t, manager, `{"operation":"CANCEL","order_id":"b1","symbol":"AAPL"}`)

	book, _, err := manager.GetBook(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, book.OrderCount())
}

func TestPipeline_SymbolsAreIndependent(t *testing.T) {
	manager, sender := setupPipeline(t)

	applyCommand(t, manager, `{"operation":"INSERT","order_id":"b1","symbol":"AAPL","side":"BUY","quantity":"5","price":"100.0"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"s1","symbol":"MSFT","side":"SELL","quantity":"5","price":"99.0"}`)

	// Crossed prices on different symbols must never trade
	assert.Empty(t, sender.Messages())
}

func TestPipeline_MarketDataSnapshot(t *testing.T) {
	manager, _ := setupPipeline(t)
	ctx := context.Background()

	applyCommand(t, manager, `{"operation":"INSERT","order_id":"b1","symbol":"AAPL","side":"BUY","quantity":"5","price":"100.0"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"a1","symbol":"AAPL","side":"SELL","quantity":"7","price":"100.5"}`)

	cache := marketdata.NewMemoryCache()
	defer cache.Close()

	publisher := marketdata.NewPublisher(manager, cache, time.Second, nil)
	publisher.PublishAll(ctx)

	snapshot, err := cache.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, snapshot.Bid)
	require.NotNil(t, snapshot.Ask)
	assert.Equal(t, "100.000", snapshot.Bid.Price)
	assert.Equal(t, "5.000", snapshot.Bid.Quantity)
	assert.Equal(t, "100.500", snapshot.Ask.Price)
	assert.Equal(t, "7.000", snapshot.Ask.Quantity)
}

func TestPipeline_RejectedCommandsTouchNothing(t *testing.T) {
	manager, sender := setupPipeline(t)
	ctx := context.Background()

	_, err := gateway.DecodeCommand(ctx, []byte(`{"operation":"INSERT","order_id":"x","symbol":"AAPL","side":"BUY","quantity":"ten","price":"100.0"}`))
	require.ErrorIs(t, err, gateway.ErrMalformedCommand)

	_, err = gateway.DecodeCommand(ctx, []byte(`{"operation":"TELEPORT","order_id":"x","symbol":"AAPL"}`))
	require.ErrorIs(t, err, gateway.ErrUnknownOperation)

	assert.Empty(t, sender.Messages())
	assert.Empty(t, manager.ListBooks(ctx))
}

func TestPipeline_QuantityConservation(t *testing.T) {
	manager, sender := setupPipeline(t)

	applyCommand(t, manager, `{"operation":"INSERT","order_id":"s1","symbol":"AAPL","side":"SELL","quantity":"3","price":"100.0"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"s2","symbol":"AAPL","side":"SELL","quantity":"4","price":"100.5"}`)
	applyCommand(t, manager, `{"operation":"INSERT","order_id":"b1","symbol":"AAPL","side":"BUY","quantity":"10","price":"101.0","tif":"IOC"}`)

	messages := sender.Messages()
	require.Len(t, messages, 1)
	final := messages[0]

	executed := fpdecimal.Zero
	for _, trade := range final.Trades {
		quantity, err := fpdecimal.FromString(trade.Quantity)
		require.NoError(t, err)
		executed = executed.Add(quantity)
	}
	assert.Equal(t, fpdecimal.FromFloat(7.0).String(), executed.String())
	assert.Equal(t, "7.000", final.ExecutedQty)
	assert.Equal(t, "0.000", final.RemainingQty, "IOC remainder is canceled, not left")
	assert.Contains(t, final.Canceled, "b1")
}
