package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"github.com/erain9/limitbook/pkg/messaging"
)

var (
	configMu   sync.RWMutex
	brokerList = "localhost:9092"
	topic      = "execution-reports"
)

const maxRetry = 5

// SetBrokerList overrides the default Kafka broker address. Call before any
// sender or consumer is created.
func SetBrokerList(brokers string) {
	configMu.Lock()
	defer configMu.Unlock()
	brokerList = brokers
}

// SetTopic overrides the default execution-report topic.
func SetTopic(t string) {
	configMu.Lock()
	defer configMu.Unlock()
	topic = t
}

func currentConfig() (string, string) {
	configMu.RLock()
	defer configMu.RUnlock()
	return brokerList, topic
}

// QueueMessageSender implements messaging.MessageSender on top of a Kafka
// sync producer. Reports are encoded as JSON keyed by order ID so all
// reports for one order land on one partition in order.
type QueueMessageSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueMessageSender creates a sender with its own producer connection.
func NewQueueMessageSender() (*QueueMessageSender, error) {
	brokers, t := currentConfig()

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = maxRetry
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer([]string{brokers}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer, topic: t}, nil
}

// newSenderWithProducer is used by tests to inject a mock producer.
func newSenderWithProducer(producer sarama.SyncProducer, topic string) *QueueMessageSender {
	return &QueueMessageSender{producer: producer, topic: topic}
}

// SendDoneMessage publishes one execution report.
func (q *QueueMessageSender) SendDoneMessage(ctx context.Context, done *messaging.DoneMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("failed to marshal done message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(done.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close releases the underlying producer.
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}
