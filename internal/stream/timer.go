package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Timer periodically syncs streams that have not been touched recently so
// dist_index does not fall arbitrarily far behind wall-clock time between
// buyer-initiated calls, and so finalize-eligible streams surface promptly
// to whatever process drives Finalize. It never changes correctness —
// spec.md §9 guarantees sync_time gives the same result whether it runs
// every block or once at the end — it only bounds staleness for readers.
type Timer struct {
	service  *Service
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewTimer creates a new stream sweep timer.
func NewTimer(service *Service, store Store, logger *slog.Logger) *Timer {
	return &Timer{
		service:  service,
		store:    store,
		interval: 15 * time.Second,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is active.
func (t *Timer) Running() bool { return t.running.Load() }

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeSweep(ctx)
		}
	}
}

// Stop signals the sweep loop to exit.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in stream timer", "panic", fmt.Sprint(r))
		}
	}()
	t.sweep(ctx)
}

func (t *Timer) sweep(ctx context.Context) {
	stale, err := t.store.ListActiveUntouchedSince(ctx, time.Now().Add(-t.interval), 100)
	if err != nil {
		t.logger.Warn("failed to list untouched streams", "error", err)
		return
	}
	for _, s := range stale {
		if _, err := t.service.SyncTime(ctx, s.ID, time.Now()); err != nil {
			t.logger.Warn("failed to sync stream", "streamId", s.ID, "error", err)
		}
	}
}
