// Package schedule owns the per-entity timers and the check routines they
// trigger. Every tick reloads the entity's configuration from the store, so
// admin edits take effect without a restart, and writes results back only if
// the entity still exists.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/metrics"
	"github.com/vigilbot/vigil/internal/watch"
)

// CheckFunc runs one check for one entity.
type CheckFunc func(ctx context.Context, id string) error

type entry struct {
	cancel   context.CancelFunc
	interval time.Duration
	inFlight bool
}

// Registry owns one cancellable repeating timer per watched entity. It
// replaces the original's ambient global timer map: lifecycle is explicit
// methods, and no two timers can coexist for the same entity.
type Registry struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zap.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		logger:  logger,
		metrics: m,
		entries: make(map[string]*entry),
		baseCtx: ctx,
		stop:    cancel,
	}
}

func key(kind watch.Kind, id string) string {
	return string(kind) + "/" + id
}

// Schedule installs a timer for the entity, cancelling any prior one first.
// The first check fires after initialDelay (zero means immediately), then
// every interval. Overlapping ticks for the same entity are skipped rather
// than run concurrently; the next natural tick retries.
func (r *Registry) Schedule(kind watch.Kind, id string, interval, initialDelay time.Duration, check CheckFunc) {
	if interval <= 0 || check == nil {
		return
	}
	k := key(kind, id)

	r.mu.Lock()
	if old, ok := r.entries[k]; ok {
		if old.interval == interval {
			// Unchanged schedule; leave the running timer alone.
			r.mu.Unlock()
			return
		}
		old.cancel()
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	e := &entry{cancel: cancel, interval: interval}
	r.entries[k] = e
	r.mu.Unlock()

	r.metrics.ActiveEntities.WithLabelValues(string(kind)).Inc()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.metrics.ActiveEntities.WithLabelValues(string(kind)).Dec()
		r.runTimer(ctx, kind, id, e, interval, initialDelay, check)
	}()
}

func (r *Registry) runTimer(
	ctx context.Context,
	kind watch.Kind,
	id string,
	e *entry,
	interval, initialDelay time.Duration,
	check CheckFunc,
) {
	if initialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialDelay):
		}
	}
	r.tick(ctx, kind, id, e, check)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, kind, id, e, check)
		}
	}
}

func (r *Registry) tick(ctx context.Context, kind watch.Kind, id string, e *entry, check CheckFunc) {
	r.mu.Lock()
	if e.inFlight {
		r.mu.Unlock()
		r.logger.Warn("previous check still running, skipping tick",
			zap.String("kind", string(kind)), zap.String("id", id))
		return
	}
	e.inFlight = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		e.inFlight = false
		r.mu.Unlock()
	}()

	start := time.Now()
	err := check(ctx, id)
	r.metrics.CheckDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
		r.logger.Error("entity check failed",
			zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	}
	r.metrics.ChecksTotal.WithLabelValues(string(kind), result).Inc()
}

// Cancel removes the entity's timer. An in-flight check is not interrupted;
// its result is discarded by the reload-before-write step when the entity is
// gone from the collection.
func (r *Registry) Cancel(kind watch.Kind, id string) {
	k := key(kind, id)
	r.mu.Lock()
	e, ok := r.entries[k]
	if ok {
		delete(r.entries, k)
	}
	r.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// Scheduled reports whether the entity currently has an active timer.
func (r *Registry) Scheduled(kind watch.Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key(kind, id)]
	return ok
}

// Active returns the keys of all scheduled entities for one kind.
func (r *Registry) Active(kind watch.Kind) []string {
	prefix := string(kind) + "/"
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for k := range r.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			ids = append(ids, k[len(prefix):])
		}
	}
	return ids
}

// Close cancels every timer and waits for in-flight checks to finish.
func (r *Registry) Close() {
	r.stop()
	r.mu.Lock()
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	r.wg.Wait()
}
