// Package metrics exposes the orchestrator's Prometheus counters and the
// optional /metrics listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsSeen counts watch events received, by operation.
	EventsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cns_watch_events_total",
		Help: "Watch events received from the store, by operation.",
	}, []string{"op"})

	// Rebuilds counts debounced build passes.
	Rebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cns_rebuilds_total",
		Help: "Debounced matchmaker passes executed.",
	})

	// Candidates counts provider/consumer pairs examined by builds.
	Candidates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cns_candidates_total",
		Help: "Provider/consumer candidate pairs examined.",
	})

	// ConnectionsWritten counts connection sides materialised.
	ConnectionsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cns_connections_written_total",
		Help: "Connection endpoint records written.",
	})

	// PropertiesPropagated counts connection-level property writes issued
	// by update (to the peer) and propagate (to this side's connections).
	PropertiesPropagated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cns_properties_propagated_total",
		Help: "Property values propagated across connections.",
	})

	// PutFailures counts store writes that failed.
	PutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cns_put_failures_total",
		Help: "Store put operations that returned an error.",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
