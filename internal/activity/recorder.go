package activity

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Recorder buffers records in a bounded channel and persists them from a
// background goroutine. Record never blocks the caller: when the buffer is
// full the entry is dropped and counted, trading completeness for response
// latency.
type Recorder struct {
	repo    Repository
	logger  *slog.Logger
	inbox   chan Record
	dropped atomic.Int64
}

// NewRecorder constructs a Recorder with the given buffer capacity.
func NewRecorder(repo Repository, logger *slog.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		inbox:  make(chan Record, buffer),
	}
}

// Record enqueues an entry without blocking. Returns false when the entry
// was dropped.
func (r *Recorder) Record(rec Record) bool {
	select {
	case r.inbox <- rec:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Dropped reports how many entries were discarded under backpressure.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run consumes the buffer until the context is cancelled. Persistence
// failures are logged and skipped; a bad sink must not stop the consumer.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-r.inbox:
			if err := r.repo.Insert(ctx, rec); err != nil {
				r.logger.Error("persist activity record",
					slog.String("action", rec.Action),
					slog.Any("error", err))
			}
		}
	}
}
