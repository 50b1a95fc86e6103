package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// DefaultRecorderBuffer is the queue size used when none is given.
const DefaultRecorderBuffer = 64

// Recorder appends records in the background so that a slow or failing
// store never delays a response. When the queue is full, records are
// dropped with a warning.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan core.MemoryRecord
	done   chan struct{}
}

// NewRecorder starts a recorder writing to store.
func NewRecorder(store Store, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		queue:   make(chan core.MemoryRecord, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues rec without blocking. It reports whether rec was queued.
func (r *Recorder) Record(rec core.MemoryRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("memory recorder closed, dropping record", "id", rec.ID)
		return false
	}
	select {
	case r.queue <- rec:
		return true
	default:
		r.logger.Warn("memory recorder queue full, dropping record", "id", rec.ID)
		return false
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.store.Append(ctx, rec); err != nil {
			r.logger.Warn("failed to record outcome", "id", rec.ID, "error", err)
		} else {
			r.logger.Debug("outcome recorded", "id", rec.ID, "succeeded", rec.Succeeded)
		}
		cancel()
	}
}
