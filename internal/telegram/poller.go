package telegram

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UpdateHandler consumes one update.
type UpdateHandler interface {
	Handle(ctx context.Context, update Update)
}

// UpdateSource is the subset of Client the poller needs.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller long-polls getUpdates and hands updates to the handler through a
// ChatQueue, so each chat sees its updates in order.
type Poller struct {
	source  UpdateSource
	queue   *ChatQueue
	timeout time.Duration
	backoff time.Duration
	logger  *zap.Logger
}

func NewPoller(source UpdateSource, handler UpdateHandler, timeout time.Duration, logger *zap.Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		source:  source,
		queue:   NewChatQueue(handler),
		timeout: timeout,
		backoff: 3 * time.Second,
		logger:  logger.Named("poller"),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight updates.
func (p *Poller) Run(ctx context.Context) error {
	defer p.queue.Wait()

	var offset int64
	for {
		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.queue.Submit(context.WithoutCancel(ctx), u)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
