package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/erain9/limitbook/pkg/db/queue"
	"github.com/erain9/limitbook/pkg/messaging"
)

// SetupConsumer starts the Kafka consumer that tails execution reports and
// logs them. Used by the server for report visibility in development; a real
// market-data publisher would subscribe the same way.
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueMessageConsumer, error) {
	kafkaConsumer, err := queue.NewQueueMessageConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without Kafka support")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting Kafka consumer")
		err := kafkaConsumer.ConsumeDoneMessages(func(msg *messaging.DoneMessage) error {
			logger.Info().
				Str("order_id", msg.OrderID).
				Str("symbol", msg.Symbol).
				Str("executed_qty", msg.ExecutedQty).
				Str("remaining_qty", msg.RemainingQty).
				Bool("stored", msg.Stored).
				Strs("canceled", msg.Canceled).
				Interface("trades", msg.Trades).
				Msg("Received execution report")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return kafkaConsumer, nil
}
