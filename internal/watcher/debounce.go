package watcher

import (
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pendingChange tracks a file change event
type pendingChange struct {
	path      string
	op        fsnotify.Op
	timestamp time.Time
}

// Debouncer batches file change events to avoid redundant processing
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]*pendingChange
	interval time.Duration
	timer    *time.Timer
}

// NewDebouncer creates a debouncer that settles after interval
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]*pendingChange),
		interval: interval,
	}
}

// Add records a file change event
func (d *Debouncer) Add(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[path]; ok {
		// Combine operations
		existing.op |= op
		existing.timestamp = time.Now()
	} else {
		d.pending[path] = &pendingChange{
			path:      path,
			op:        op,
			timestamp: time.Now(),
		}
	}
}

// Flush (re)arms the timer. Once no Flush has happened for an interval, the
// pending changes are handed to callback as one batch.
func (d *Debouncer) Flush(callback func(Batch)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		batch := d.drain()
		d.mu.Unlock()

		if !batch.Empty() {
			callback(batch)
		}
	})
}

// drain empties the pending set. Callers hold mu.
func (d *Debouncer) drain() Batch {
	var batch Batch
	for path, change := range d.pending {
		switch {
		case change.op.Has(fsnotify.Remove) || change.op.Has(fsnotify.Rename):
			// A file that was removed and recreated still exists
			if change.op.Has(fsnotify.Create) && exists(path) {
				batch.Changed = append(batch.Changed, path)
			} else {
				batch.Removed = append(batch.Removed, path)
			}
		case change.op.Has(fsnotify.Write) || change.op.Has(fsnotify.Create):
			batch.Changed = append(batch.Changed, path)
		}
	}

	d.pending = make(map[string]*pendingChange)

	sort.Strings(batch.Changed)
	sort.Strings(batch.Removed)
	return batch
}
