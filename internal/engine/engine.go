package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cnscp/cns-orchestrator/internal/cache"
	"github.com/cnscp/cns-orchestrator/internal/metrics"
	"github.com/cnscp/cns-orchestrator/internal/schema"
	"github.com/cnscp/cns-orchestrator/internal/store"
)

// Engine owns the cache, the debounce timer, and the store client, and
// runs the single-writer reconciliation loop.
type Engine struct {
	client   store.Client
	cache    *cache.Cache
	ids      IDGenerator
	quiet    time.Duration
	debounce *debouncer
}

// Option configures an Engine.
type Option func(*Engine)

// WithQuietPeriod overrides the debounce window. Tests use short windows
// to keep scenarios fast.
func WithQuietPeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.quiet = d
	}
}

// WithIDGenerator overrides the connection-id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine over a connected store client.
func New(client store.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		cache:  cache.New(),
		ids:    ShortUUIDGenerator{},
		quiet:  DefaultQuietPeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debounce = newDebouncer(e.quiet)
	return e
}

// Cache exposes the engine's cache for tests and diagnostics.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Run loads the initial cache, starts the watch, and processes events
// until ctx is cancelled or the watch stream fails.
//
// Must be called from exactly one goroutine. All cache mutation, build
// passes, and propagation happen here.
func (e *Engine) Run(ctx context.Context) error {
	initial, err := e.client.All(ctx, schema.Root)
	if err != nil {
		return err
	}
	e.cache.Load(initial)
	slog.Info("cache loaded", "keys", e.cache.Len())

	events, err := e.client.Watch(ctx, schema.Root)
	if err != nil {
		return err
	}
	slog.Info("watching", "prefix", schema.Root)

	// One pass right away, so state that changed while the orchestrator
	// was down converges without waiting for a mutation.
	e.debounce.Trigger()

	for {
		select {
		case <-ctx.Done():
			e.debounce.Cancel()
			slog.Info("engine stopping", "reason", ctx.Err())
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				e.debounce.Cancel()
				return store.NewError(store.KindFailedToWatch, "watch stream closed")
			}
			e.handleEvent(ctx, ev)

		case <-e.debounce.Fired():
			metrics.Rebuilds.Inc()
			if err := e.build(ctx); err != nil {
				// The timer callback swallows build errors so the
				// engine stays armed for the next event.
				slog.Error("build failed", "error", err)
			}
		}
	}
}

// handleEvent refreshes the cache, classifies the key, and dispatches.
// Handler errors are logged and swallowed so a single bad event cannot
// kill the watch.
func (e *Engine) handleEvent(ctx context.Context, ev store.Event) {
	metrics.EventsSeen.WithLabelValues(ev.Op.String()).Inc()

	// Cache first, so every downstream handler sees the latest value
	// for the event's key.
	switch ev.Op {
	case store.OpPut:
		e.cache.Set(ev.Key, ev.Value)
	case store.OpDelete:
		e.cache.Delete(ev.Key)
	}

	action := classify(ev.Key)

	if ev.Op == store.OpDelete {
		// Deletes are observed but never mirrored: a delete seen from
		// inside the watch cannot be told apart from a partially
		// applied rebuild, so reacting could tear down healthy
		// connections. Stale opposite-side records remain until an
		// operator removes them.
		slog.Debug("delete observed", "key", ev.Key, "would", action.String())
		return
	}

	switch action {
	case ActionRebuild:
		slog.Debug("rebuild armed", "key", ev.Key)
		e.debounce.Trigger()

	case ActionPropagate:
		if err := e.propagate(ctx, ev.Key, ev.Value); err != nil {
			slog.Error("propagate failed", "key", ev.Key, "error", err)
		}

	case ActionUpdate:
		if err := e.update(ctx, ev.Key, ev.Value); err != nil {
			slog.Error("update failed", "key", ev.Key, "error", err)
		}
	}
}

// put issues a single store write, counting failures.
func (e *Engine) put(ctx context.Context, key, value string) error {
	if err := e.client.Put(ctx, key, value); err != nil {
		metrics.PutFailures.Inc()
		return err
	}
	slog.Debug("put", "key", key, "value", value)
	return nil
}
