package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erain9/limitbook/pkg/engine"
)

// Publisher periodically captures top-of-book snapshots for every live book
// and writes them to a Cache. Matching never waits on it; readers see quotes
// at most one interval old plus cache latency.
type Publisher struct {
	manager  *engine.Manager
	cache    Cache
	interval time.Duration
	logger   *zap.Logger
}

// NewPublisher creates a publisher over a manager's books.
func NewPublisher(manager *engine.Manager, cache Cache, interval time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		manager:  manager,
		cache:    cache,
		interval: interval,
		logger:   logger,
	}
}

// Run publishes until the context is canceled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PublishAll(ctx)
		}
	}
}

// PublishAll captures and publishes one snapshot per live book.
func (p *Publisher) PublishAll(ctx context.Context) {
	for _, info := range p.manager.ListBooks(ctx) {
		book, _, err := p.manager.GetBook(ctx, info.Symbol)
		if err != nil {
			continue
		}
		snapshot := Capture(book)
		if err := p.cache.Publish(ctx, snapshot); err != nil {
			p.logger.Warn("failed to publish top-of-book snapshot",
				zap.String("symbol", info.Symbol),
				zap.Error(err))
		}
	}
}
