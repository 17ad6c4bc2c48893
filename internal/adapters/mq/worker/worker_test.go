package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// stubQueue feeds a fixed set of events over a single shared channel
// and closes it, so multiple workers split the load.
type stubQueue struct {
	events []Event
	once   sync.Once
	ch     chan Event
}

func (q *stubQueue) Dequeue(_ context.Context) <-chan Event {
	q.once.Do(func() {
		q.ch = make(chan Event, len(q.events))
		for _, e := range q.events {
			q.ch <- e
		}
		close(q.ch)
	})
	return q.ch
}

// stubProcessor records processed events and can fail on demand.
type stubProcessor struct {
	mu     sync.Mutex
	seen   []Event
	failOn int64
}

func (p *stubProcessor) Process(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn != 0 && e.ObjectID == p.failOn {
		return errors.New("boom")
	}
	p.seen = append(p.seen, e)
	return nil
}

func (p *stubProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func activityEvent(id int64) Event {
	return model.WebhookEvent{
		ObjectType: model.ObjectActivity,
		AspectType: model.AspectCreate,
		ObjectID:   id,
		OwnerID:    100,
	}
}

func TestWorker_ProcessesAllEvents(t *testing.T) {
	q := &stubQueue{events: []Event{activityEvent(1), activityEvent(2), activityEvent(3)}}
	p := &stubProcessor{}
	w := NewInMemoryWorker(q, p, WithName("test-worker"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Run(ctx)

	if got := p.count(); got != 3 {
		t.Errorf("expected 3 processed events, got %d", got)
	}
}

func TestWorker_ContinuesAfterProcessorError(t *testing.T) {
	q := &stubQueue{events: []Event{activityEvent(1), activityEvent(2), activityEvent(3)}}
	p := &stubProcessor{failOn: 2}
	w := NewInMemoryWorker(q, p)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Run(ctx)

	if got := p.count(); got != 2 {
		t.Errorf("expected 2 processed events, got %d", got)
	}
}

func TestWorker_Shutdown(t *testing.T) {
	blocking := make(chan Event)
	q := queueFunc(func(context.Context) <-chan Event { return blocking })
	w := NewInMemoryWorker(q, &stubProcessor{})

	go w.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

type queueFunc func(ctx context.Context) <-chan Event

func (f queueFunc) Dequeue(ctx context.Context) <-chan Event { return f(ctx) }

func TestPool_ProcessesConcurrently(t *testing.T) {
	events := make([]Event, 50)
	for i := range events {
		events[i] = activityEvent(int64(i + 1))
	}
	q := &stubQueue{events: events}
	p := &stubProcessor{}
	pool := NewPool(4, q, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	deadline := time.After(3 * time.Second)
	for p.count() < len(events) {
		select {
		case <-deadline:
			t.Fatalf("timed out, processed %d of %d", p.count(), len(events))
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := pool.Shutdown(ctx); err != nil {
		t.Errorf("unexpected pool shutdown error: %v", err)
	}
}
