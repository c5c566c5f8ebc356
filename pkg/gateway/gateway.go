package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/engine"
	"github.com/erain9/limitbook/pkg/logging"
)

// Gateway consumes order-entry commands off Kafka and applies them to the
// matching engine. It is the single writer per partition; commands keyed by
// symbol are therefore serialized per symbol by the broker.
type Gateway struct {
	cfg     *Config
	manager *engine.Manager
	group   sarama.ConsumerGroup
	logger  zerolog.Logger
}

// New connects a consumer group to the configured broker.
func New(cfg *Config, manager *engine.Manager, logger zerolog.Logger) (*Gateway, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup([]string{cfg.KafkaBrokerAddr}, cfg.ConsumerGroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Gateway{
		cfg:     cfg,
		manager: manager,
		group:   group,
		logger:  logger,
	}, nil
}

// Run consumes until the context is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	go func() {
		for err := range g.group.Errors() {
			g.logger.Error().Err(err).Msg("Consumer group error")
		}
	}()

	handler := &commandHandler{gateway: g}
	for {
		if err := g.group.Consume(ctx, []string{g.cfg.CommandsTopic}, handler); err != nil {
			return fmt.Errorf("consumer group session failed: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close releases the consumer group.
func (g *Gateway) Close() error {
	return g.group.Close()
}

// Dispatch decodes one command payload and applies it to the engine. Every
// outcome is logged; a rejected command never stops consumption.
func (g *Gateway) Dispatch(ctx context.Context, payload []byte) error {
	cmd, err := DecodeCommand(ctx, payload)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Rejected command")
		return err
	}

	ctx = logging.WithSymbol(ctx, cmd.Symbol)
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	logger := g.logger.With().
		Str("operation", string(cmd.Operation)).
		Str("order_id", cmd.OrderID).
		Str("symbol", cmd.Symbol).
		Logger()

	switch cmd.Operation {
	case OpInsert:
		order, err := cmd.ToOrder()
		if err != nil {
			logger.Warn().Err(err).Msg("Rejected insert")
			return err
		}
		done, err := g.manager.InsertOrder(ctx, order)
		if err != nil {
			logger.Warn().Err(err).Msg("Insert failed")
			return err
		}
		logger.Info().
			Int("trades", len(done.Trades)).
			Str("left", done.Left.String()).
			Bool("stored", done.Stored).
			Msg("Insert applied")
		return nil

	case OpCancel:
		if _, err := g.manager.CancelOrder(ctx, cmd.Symbol, cmd.OrderID); err != nil {
			logger.Warn().Err(err).Msg("Cancel failed")
			return err
		}
		logger.Info().Msg("Cancel applied")
		return nil

	case OpModify:
		price, err := cmd.ParsePrice()
		if err != nil {
			return err
		}
		quantity, err := cmd.ParseQuantity()
		if err != nil {
			return err
		}
		done, err := g.manager.ModifyOrder(ctx, cmd.Symbol, cmd.OrderID, price, quantity)
		if err != nil {
			logger.Warn().Err(err).Msg("Modify failed")
			return err
		}
		logger.Info().
			Int("trades", len(done.Trades)).
			Bool("stored", done.Stored).
			Msg("Modify applied")
		return nil
	}

	return ErrUnknownOperation
}

// commandHandler adapts Dispatch to the consumer group contract.
type commandHandler struct {
	gateway *Gateway
}

func (h *commandHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h *commandHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *commandHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		// Rejections are logged inside Dispatch; the offset is committed
		// either way, a bad command is not retried.
		_ = h.gateway.Dispatch(session.Context(), msg.Value)
		session.MarkMessage(msg, "")
	}
	return nil
}

// RejectionError reports whether an error is a command rejection rather than
// an infrastructure failure.
func RejectionError(err error) bool {
	switch {
	case err == nil:
		return false
	case isAny(err, ErrUnknownOperation, ErrMalformedCommand,
		core.ErrOrderExists, core.ErrNonexistentOrder,
		core.ErrInvalidQuantity, core.ErrInvalidPrice, core.ErrInvalidTif,
		engine.ErrBookNotFound):
		return true
	}
	return false
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
