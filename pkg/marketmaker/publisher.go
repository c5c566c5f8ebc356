package marketmaker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/erain9/limitbook/pkg/gateway"
)

// kafkaCommandPublisher implements CommandPublisher on the commands topic.
type kafkaCommandPublisher struct {
	writer *kafka.Writer
}

// NewKafkaCommandPublisher creates a publisher for the configured broker and topic.
func NewKafkaCommandPublisher(cfg *Config) CommandPublisher {
	return &kafkaCommandPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokerAddr),
			Topic:    cfg.CommandsTopic,
			Balancer: &kafka.Hash{},
		},
	}
}

// PublishCommand sends one command, keyed by symbol so per-instrument order
// is preserved through the broker.
func (p *kafkaCommandPublisher) PublishCommand(ctx context.Context, cmd *gateway.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cmd.Symbol),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}
	return nil
}

// Close releases the writer.
func (p *kafkaCommandPublisher) Close() error {
	return p.writer.Close()
}
