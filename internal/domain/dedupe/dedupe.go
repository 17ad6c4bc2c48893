// Package dedupe defines the interface for idempotency tracking.
//
// The ingestion path uses it to drop byte-identical webhook
// redeliveries before they reach the queue. It is an optimization, not
// a correctness mechanism: the merge policy stays safe for duplicates
// that slip past a bounded cache.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Deduper records seen identifiers to avoid re-processing duplicates.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing it to be retried. Used when an
	// event was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Fingerprint derives a dedupe id from a raw request body.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ringDeduper implements Deduper with a fixed-size FIFO ring: when the
// cache is full the oldest id is evicted first.
type ringDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
}

const defaultMaxSize = 50000

// Option applies a configuration option to the ring deduper.
type Option func(*ringDeduper)

// WithMaxSize bounds the number of retained ids.
func WithMaxSize(n int) Option {
	return func(d *ringDeduper) {
		if n > 0 {
			d.ring = make([]string, n)
		}
	}
}

// NewRingDeduper creates a bounded FIFO deduper.
func NewRingDeduper(opts ...Option) Deduper {
	d := &ringDeduper{
		seen: make(map[string]struct{}),
		ring: make([]string, defaultMaxSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = id
	d.next = (d.next + 1) % len(d.ring)
	d.seen[id] = struct{}{}
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	for i := range d.ring {
		if d.ring[i] == id {
			d.ring[i] = ""
			break
		}
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
