package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records rebuild activity for the long-running serve mode.
type Metrics struct {
	registry *prom.Registry

	rebuilds        *prom.CounterVec
	rebuildDuration prom.Histogram
	lastSuccess     atomic.Int64 // unix seconds, 0 until first success
}

// NewMetrics constructs and registers the serve metrics.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prom.NewRegistry()}

	m.rebuilds = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "docsite",
		Name:      "rebuilds_total",
		Help:      "Content rebuilds by trigger and result",
	}, []string{"trigger", "result"})
	m.rebuildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "docsite",
		Name:      "rebuild_duration_seconds",
		Help:      "Duration of content rebuilds",
		Buckets:   prom.DefBuckets,
	})
	lastSuccess := prom.NewGaugeFunc(prom.GaugeOpts{
		Namespace: "docsite",
		Name:      "last_successful_rebuild_timestamp_seconds",
		Help:      "Unix time of the last successful rebuild, 0 before the first",
	}, func() float64 { return float64(m.lastSuccess.Load()) })

	m.registry.MustRegister(m.rebuilds, m.rebuildDuration, lastSuccess)
	return m
}

// ObserveRebuild records one rebuild attempt.
func (m *Metrics) ObserveRebuild(trigger string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	} else {
		m.lastSuccess.Store(time.Now().Unix())
	}
	m.rebuilds.WithLabelValues(trigger, result).Inc()
	m.rebuildDuration.Observe(d.Seconds())
}

// Serve exposes the registry on addr until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Metrics listener stopped", "error", err)
	}
}
