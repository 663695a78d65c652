package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"outfitsquare/internal/queue"
)

// InlinePublisher satisfies queue.Publisher by handling each event
// synchronously in the caller's goroutine. It backs single-node deployments
// that run without Redis.
type InlinePublisher struct {
	handler *Handler
	seq     atomic.Int64
}

func NewInlinePublisher(handler *Handler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	id := fmt.Sprintf("inline-%d", p.seq.Add(1))
	if err := p.handler.HandleEvent(ctx, event); err != nil {
		return id, err
	}
	return id, nil
}
