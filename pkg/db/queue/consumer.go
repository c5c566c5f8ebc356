package queue

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"github.com/erain9/limitbook/pkg/messaging"
)

// QueueMessageConsumer reads execution reports back off Kafka and hands them
// to a caller-supplied handler, one message at a time.
type QueueMessageConsumer struct {
	consumer sarama.Consumer
	topic    string
	done     chan struct{}
}

// NewQueueMessageConsumer connects a partition consumer to the configured
// broker and topic.
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	brokers, t := currentConfig()

	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer([]string{brokers}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &QueueMessageConsumer{
		consumer: consumer,
		topic:    t,
		done:     make(chan struct{}),
	}, nil
}

// newConsumerWithClient is used by tests to inject a mock consumer.
func newConsumerWithClient(consumer sarama.Consumer, topic string) *QueueMessageConsumer {
	return &QueueMessageConsumer{
		consumer: consumer,
		topic:    topic,
		done:     make(chan struct{}),
	}
}

// ConsumeDoneMessages blocks, decoding each report and invoking the handler,
// until Close is called. Malformed payloads are logged and skipped; handler
// errors are logged but do not stop consumption.
func (c *QueueMessageConsumer) ConsumeDoneMessages(handler func(*messaging.DoneMessage) error) error {
	partitionConsumer, err := c.consumer.ConsumePartition(c.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	for {
		select {
		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				return nil
			}
			var done messaging.DoneMessage
			if err := json.Unmarshal(msg.Value, &done); err != nil {
				log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed execution report")
				continue
			}
			if err := handler(&done); err != nil {
				log.Error().Err(err).Str("order_id", done.OrderID).Msg("Execution report handler failed")
			}
		case err, ok := <-partitionConsumer.Errors():
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Kafka consumer error")
		case <-c.done:
			return nil
		}
	}
}

// Close stops consumption and releases the consumer.
func (c *QueueMessageConsumer) Close() error {
	close(c.done)
	return c.consumer.Close()
}
