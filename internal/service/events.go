package service

import (
	"context"
	"log"

	"outfitsquare/internal/metrics"
	"outfitsquare/internal/model"
	"outfitsquare/internal/queue"
)

// publish sends an event after the write that caused it has committed.
// Failures are logged and never fail the caller: the write already happened
// and the consumers are best-effort (feed cache, notifications).
func publish(ctx context.Context, publisher queue.Publisher, component string, event queue.Event) {
	if publisher == nil {
		return
	}

	msgID, err := publisher.Publish(ctx, queue.StreamSquare, event)
	metrics.EventsPublished.WithLabelValues(event.Type, metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[%s] Failed to publish %s event: err=%v", component, event.Type, err)
		return
	}
	log.Printf("[%s] Published %s: msgID=%s", component, event.Type, msgID)
}

// pageLimit applies the default and maximum page sizes.
func pageLimit(limit int) int {
	if limit <= 0 {
		return model.DefaultPageSize
	}
	if limit > model.MaxPageSize {
		return model.MaxPageSize
	}
	return limit
}
