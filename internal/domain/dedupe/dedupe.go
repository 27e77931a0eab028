// Package dedupe remembers ledger fingerprints so identical submissions are
// recomputed once.
package dedupe

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/vists/internal/domain/model"
)

const defaultMaxSize = 1024

// Deduper records seen fingerprints.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the same content can be submitted again,
	// e.g. after queue backpressure or a failed run.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Fingerprint hashes the cells of a table. Tables with the same cells in the
// same positions share a fingerprint.
func Fingerprint(t model.Table) string {
	d := xxhash.New()
	var sep = []byte{0x1f}
	var eol = []byte{0x1e}
	for _, row := range t {
		for _, cell := range row {
			_, _ = d.WriteString(cell)
			_, _ = d.Write(sep)
		}
		_, _ = d.Write(eol)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// entry is a link of the insertion-ordered list; oldest sits at the front.
type entry struct {
	id         string
	prev, next *entry
}

// fifoDeduper evicts the oldest fingerprint once maxSize is reached.
// A maxSize <= 0 keeps every fingerprint.
type fifoDeduper struct {
	mu      sync.Mutex
	seen    map[string]*entry
	oldest  *entry
	newest  *entry
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a FIFO deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &fifoDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*entry)
	return d
}

func (d *fifoDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.remove(d.oldest)
	}

	e := &entry{id: id, prev: d.newest}
	if d.newest != nil {
		d.newest.next = e
	} else {
		d.oldest = e
	}
	d.newest = e
	d.seen[id] = e
	d.size.Add(1)
	return false
}

func (d *fifoDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[id]; ok {
		d.remove(e)
	}
}

// remove unlinks e. Must be called with d.mu held.
func (d *fifoDeduper) remove(e *entry) {
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.oldest = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.newest = e.prev
	}
	delete(d.seen, e.id)
	d.size.Add(-1)
}

func (d *fifoDeduper) Size() int64 {
	return d.size.Load()
}
