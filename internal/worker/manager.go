package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"outfitsquare/internal/metrics"
	"outfitsquare/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	maxReadBackoff = 30 * time.Second
)

// ManagerConfig tunes the consumer loops. Zero values take the defaults.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
	// ConsumerPrefix names this instance inside the group; defaults to the hostname.
	ConsumerPrefix string
}

// Manager runs consumer loops that share the square_workers group. Each loop
// owns a consumer name, so after a crash it re-reads only its own pending
// entries.
type Manager struct {
	consumer queue.Consumer
	handler  *Handler
	cfg      ManagerConfig

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.ConsumerPrefix == "" {
		cfg.ConsumerPrefix = hostname()
	}
	return &Manager{consumer: consumer, handler: handler, cfg: cfg}
}

// Start creates the group if needed and launches the loops. They run until
// Stop is called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(ctx, queue.StreamSquare, queue.ConsumerGroupSquare); err != nil {
		m.cancel()
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		l := &loop{
			m:    m,
			name: fmt.Sprintf("%s-worker-%d", m.cfg.ConsumerPrefix, i),
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			l.run(ctx)
		}()
	}

	log.Printf("[Manager] Started %d consumers on stream=%s group=%s",
		m.cfg.WorkerCount, queue.StreamSquare, queue.ConsumerGroupSquare)
	return nil
}

// Stop cancels the loops and waits for in-flight batches. Safe to call more
// than once, and before Start.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel == nil {
			return
		}
		m.cancel()
		m.wg.Wait()
		log.Printf("[Manager] Stopped")
	})
}

// loop is one consumer inside the group.
type loop struct {
	m       *Manager
	name    string
	backoff time.Duration
}

func (l *loop) run(ctx context.Context) {
	l.recover(ctx)

	for ctx.Err() == nil {
		msgs, err := l.m.consumer.Read(ctx, queue.StreamSquare, queue.ConsumerGroupSquare,
			l.name, l.m.cfg.BatchSize, l.m.cfg.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.wait(ctx, err)
			continue
		}
		l.backoff = 0
		l.process(ctx, msgs)
	}
}

// recover drains entries delivered to this consumer name but never acked.
func (l *loop) recover(ctx context.Context) {
	total := 0
	for ctx.Err() == nil {
		msgs, err := l.m.consumer.ReadPending(ctx, queue.StreamSquare, queue.ConsumerGroupSquare, l.name, l.m.cfg.BatchSize)
		if err != nil {
			log.Printf("[Worker %s] ReadPending FAILED: %v", l.name, err)
			return
		}
		if len(msgs) == 0 {
			break
		}
		total += len(msgs)
		l.process(ctx, msgs)
	}
	if total > 0 {
		log.Printf("[Worker %s] Recovered %d pending events", l.name, total)
	}
}

// process handles a batch then acks it in one call. Failed events are acked
// too: feed cache and notifications are best-effort, and a poison event must
// not wedge the group.
func (l *loop) process(ctx context.Context, msgs []queue.Message) {
	if len(msgs) == 0 {
		return
	}

	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if err := l.m.handler.HandleEvent(ctx, msg.Event); err != nil {
			log.Printf("[Worker %s] Event %s (%s) failed: %v", l.name, msg.ID, msg.Event.Type, err)
		}
		ids = append(ids, msg.ID)
	}

	err := l.m.consumer.Ack(ctx, queue.StreamSquare, queue.ConsumerGroupSquare, ids...)
	metrics.EventsAcked.WithLabelValues(metrics.Result(err)).Add(float64(len(ids)))
	if err != nil {
		log.Printf("[Worker %s] Ack FAILED for %d events: %v", l.name, len(ids), err)
	}
}

// wait sleeps with doubling backoff after a read error.
func (l *loop) wait(ctx context.Context, err error) {
	if l.backoff == 0 {
		l.backoff = time.Second
	} else if l.backoff < maxReadBackoff {
		l.backoff = min(l.backoff*2, maxReadBackoff)
	}
	log.Printf("[Worker %s] Read FAILED, retrying in %s: %v", l.name, l.backoff, err)

	t := time.NewTimer(l.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "local"
	}
	return host
}
