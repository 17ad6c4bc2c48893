package queue

import (
	"context"
	"testing"
	"time"

	"github.com/mlunde/adventpace/internal/domain/model"
)

func event(id, owner int64) model.WebhookEvent {
	return model.WebhookEvent{
		ObjectType: model.ObjectActivity,
		AspectType: model.AspectCreate,
		ObjectID:   id,
		OwnerID:    owner,
		EventTime:  1700000000 + id,
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, event(1, 100)) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	e := <-eventChan
	if e.ObjectID != 1 {
		t.Errorf("expected object 1, got %d", e.ObjectID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, event(1, 100)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event(2, 100)) {
		t.Error("expected enqueue to succeed")
	}

	if q.Enqueue(ctx, event(3, 100)) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numEvents; j++ {
				e := event(int64(id*numEvents+j), int64(id))
				for !q.Enqueue(ctx, e) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	received := make(chan model.WebhookEvent, numGoroutines*numEvents)
	go func() {
		for e := range q.Dequeue(ctx) {
			received <- e
		}
	}()

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	deadline := time.After(5 * time.Second)
	for i := 0; i < numGoroutines*numEvents; i++ {
		select {
		case <-received:
		case <-deadline:
			t.Fatalf("timed out waiting for events, got %d", i)
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, event(1, 100)) {
		t.Error("expected enqueue to succeed")
	}

	if err := q.Close(); err != nil {
		t.Errorf("unexpected error on close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("unexpected error on repeated close: %v", err)
	}

	if q.Enqueue(ctx, event(2, 100)) {
		t.Error("expected enqueue to fail after close")
	}

	// The buffered event is still drained before the channel closes.
	eventChan := q.Dequeue(ctx)
	e, ok := <-eventChan
	if !ok || e.ObjectID != 1 {
		t.Errorf("expected buffered event 1, got %v ok=%v", e.ObjectID, ok)
	}
	if _, ok := <-eventChan; ok {
		t.Error("expected dequeue channel to close")
	}
}
