package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erain9/limitbook/pkg/messaging"
)

var (
	senderPool   chan messaging.MessageSender
	poolInitOnce sync.Once
	maxPoolSize  = 32
)

// initSenderPool pre-populates the pool so the hot path never dials Kafka.
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.MessageSender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueMessageSender()
			if err != nil {
				log.Error().Err(err).Msg("Failed to create pooled sender")
				continue
			}
			senderPool <- sender
		}
	})
}

// GetSender gets a sender from the pool.
func GetSender() messaging.MessageSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		log.Warn().Msg("Sender pool is empty")
		return nil
	}
}

// ReturnSender returns a sender to the pool.
func ReturnSender(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		log.Warn().Msg("Sender pool is full")
		_ = sender.Close()
	}
}

// PooledSender is a messaging.MessageSender over the shared pool, suitable
// for wiring into the engine manager.
type PooledSender struct{}

// SendDoneMessage sends one report through the pool.
func (p *PooledSender) SendDoneMessage(ctx context.Context, msg *messaging.DoneMessage) error {
	return SendMessage(ctx, msg)
}

// Close is a no-op; pooled senders are shared.
func (p *PooledSender) Close() error {
	return nil
}

// SendMessage sends one execution report using a pooled sender. A sender
// that fails is closed instead of being returned to the pool.
func SendMessage(ctx context.Context, msg *messaging.DoneMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	if err := sender.SendDoneMessage(ctx, msg); err != nil {
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}
