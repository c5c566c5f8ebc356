package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/engine"
	"github.com/erain9/limitbook/pkg/messaging"
)

func testGateway(sender messaging.MessageSender) *Gateway {
	var opts []engine.ManagerOption
	if sender != nil {
		opts = append(opts, engine.WithMessageSender(sender))
	}
	return &Gateway{
		cfg: &Config{
			KafkaBrokerAddr: "localhost:9092",
			CommandsTopic:   "order-commands",
			ConsumerGroupID: "test",
			RequestTimeout:  5 * time.Second,
		},
		manager: engine.NewManager(opts...),
		logger:  zerolog.Nop(),
	}
}

func TestDecodeCommand(t *testing.T) {
	ctx := context.Background()

	cmd, err := DecodeCommand(ctx, []byte(`{"operation":"insert","order_id":"o-1","symbol":"AAPL","side":"BUY","quantity":"5.000","price":"100.500"}`))
	require.NoError(t, err)
	assert.Equal(t, OpInsert, cmd.Operation)
	assert.Equal(t, "o-1", cmd.OrderID)

	order, err := cmd.ToOrder()
	require.NoError(t, err)
	assert.Equal(t, core.Buy, order.Side())
	assert.Equal(t, core.GTC, order.TIF())

	_, err = DecodeCommand(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedCommand)

	_, err = DecodeCommand(ctx, []byte(`{"operation":"NUKE","order_id":"o-1","symbol":"AAPL"}`))
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = DecodeCommand(ctx, []byte(`{"operation":"CANCEL","symbol":"AAPL"}`))
	assert.ErrorIs(t, err, ErrMalformedCommand)

	_, err = DecodeCommand(ctx, []byte(`{"operation":"INSERT","order_id":"o-1","symbol":"AAPL","side":"BUY","quantity":"abc","price":"1.000"}`))
	assert.ErrorIs(t, err, ErrMalformedCommand)

	// Cancel needs no price or quantity.
	cancelCmd, err := DecodeCommand(ctx, []byte(`{"operation":"CANCEL","order_id":"o-1","symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, OpCancel, cancelCmd.Operation)
}

func TestCommandToOrderRejectsBadSide(t *testing.T) {
	cmd := &Command{
		Operation: OpInsert,
		OrderID:   "o-1",
		Symbol:    "AAPL",
		Side:      "HOLD",
		Quantity:  "1.000",
		Price:     "10.000",
	}
	_, err := cmd.ToOrder()
	assert.ErrorIs(t, err, ErrMalformedCommand)
}

func TestDispatchInsertCancelModify(t *testing.T) {
	g := testGateway(nil)
	ctx := context.Background()

	err := g.Dispatch(ctx, []byte(`{"operation":"INSERT","order_id":"s-1","symbol":"AAPL","side":"SELL","quantity":"5.000","price":"10.000"}`))
	require.NoError(t, err)

	book, _, err := g.manager.GetBook(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, book.OrderCount())

	err = g.Dispatch(ctx, []byte(`{"operation":"MODIFY","order_id":"s-1","symbol":"AAPL","quantity":"7.000","price":"10.000"}`))
	require.NoError(t, err)

	snapshot, err := book.GetOrder("s-1")
	require.NoError(t, err)
	assert.Equal(t, "7.000", snapshot.Quantity().String())

	err = g.Dispatch(ctx, []byte(`{"operation":"CANCEL","order_id":"s-1","symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, book.OrderCount())

	// Cancel after cancel is a rejection, not a crash.
	err = g.Dispatch(ctx, []byte(`{"operation":"CANCEL","order_id":"s-1","symbol":"AAPL"}`))
	assert.ErrorIs(t, err, core.ErrNonexistentOrder)
	assert.True(t, RejectionError(err))
}

func TestDispatchMatchPublishesReport(t *testing.T) {
	sender := messaging.NewMockMessageSender()
	g := testGateway(sender)
	ctx := context.Background()

	require.NoError(t, g.Dispatch(ctx, []byte(`{"operation":"INSERT","order_id":"s-1","symbol":"AAPL","side":"SELL","quantity":"5.000","price":"10.000"}`)))
	require.NoError(t, g.Dispatch(ctx, []byte(`{"operation":"INSERT","order_id":"b-1","symbol":"AAPL","side":"BUY","quantity":"5.000","price":"10.000","tif":"IOC"}`)))

	require.Len(t, sender.Messages(), 1)
	report := sender.Messages()[0]
	assert.Equal(t, "b-1", report.OrderID)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "s-1", report.Trades[0].SellOrderID)
}

func TestDispatchRejectsMalformed(t *testing.T) {
	g := testGateway(nil)
	ctx := context.Background()

	err := g.Dispatch(ctx, []byte(`{"operation":"INSERT","order_id":"o-1","symbol":"AAPL","side":"BUY","quantity":"-1.000","price":"10.000"}`))
	assert.Error(t, err)
	assert.True(t, RejectionError(err))

	// Nothing reached the engine.
	_, _, err = g.manager.GetBook(ctx, "AAPL")
	assert.ErrorIs(t, err, engine.ErrBookNotFound)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost:9092", cfg.KafkaBrokerAddr)
	assert.Equal(t, "order-commands", cfg.CommandsTopic)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}
