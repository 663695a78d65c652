package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"outfitsquare/internal/queue"
	"outfitsquare/internal/worker"
)

// fakeConsumer serves one pending batch, then new batches from a queue.
type fakeConsumer struct {
	mu       sync.Mutex
	groupErr error
	groups   int
	pending  []queue.Message
	batches  [][]queue.Message
	acked    []string
	readErrs int
}

func (c *fakeConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups++
	return c.groupErr
}

func (c *fakeConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	c.mu.Lock()
	if c.readErrs > 0 {
		c.readErrs--
		c.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	if len(c.batches) > 0 {
		batch := c.batches[0]
		c.batches = c.batches[1:]
		c.mu.Unlock()
		return batch, nil
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (c *fakeConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked = append(c.acked, messageIDs...)
	return nil
}

func (c *fakeConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out, nil
}

func (c *fakeConsumer) ackedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.acked...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_RecoversPendingThenReadsNew(t *testing.T) {
	consumer := &fakeConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.NewUserUnfollowedEvent("u1", "u2")}},
		batches: [][]queue.Message{{
			{ID: "2-0", Event: queue.NewUserUnfollowedEvent("u3", "u2")},
			{ID: "3-0", Event: queue.Event{Type: "bogus"}}, // handler error, still acked
		}},
	}
	handler := worker.NewHandler(nil, NewMockFollowerProvider(), NewMockPostsProvider())

	m := worker.NewManager(consumer, handler, worker.ManagerConfig{
		WorkerCount:    1,
		BlockTimeout:   20 * time.Millisecond,
		ConsumerPrefix: "test",
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return len(consumer.ackedIDs()) == 3 })
	m.Stop()
	m.Stop()

	got := consumer.ackedIDs()
	want := []string{"1-0", "2-0", "3-0"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("acked = %v, want %v", got, want)
		}
	}
	if consumer.groups != 1 {
		t.Errorf("EnsureGroup calls = %d, want 1", consumer.groups)
	}
}

func TestManager_RetriesAfterReadError(t *testing.T) {
	consumer := &fakeConsumer{
		readErrs: 1,
		batches:  [][]queue.Message{{{ID: "9-0", Event: queue.NewUserUnfollowedEvent("u1", "u2")}}},
	}
	handler := worker.NewHandler(nil, NewMockFollowerProvider(), NewMockPostsProvider())

	m := worker.NewManager(consumer, handler, worker.ManagerConfig{WorkerCount: 1, BlockTimeout: 20 * time.Millisecond})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitFor(t, func() bool { return len(consumer.ackedIDs()) == 1 })
}

func TestManager_StartFailsWhenGroupCannotBeCreated(t *testing.T) {
	consumer := &fakeConsumer{groupErr: errors.New("NOAUTH")}
	m := worker.NewManager(consumer, worker.NewHandler(nil, NewMockFollowerProvider(), NewMockPostsProvider()), worker.ManagerConfig{})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error from Start")
	}
	m.Stop()
}
