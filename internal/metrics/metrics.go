// Package metrics exposes Prometheus counters for collection runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "censys_toolkit"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RetriesTotal        *prometheus.CounterVec
	RecordsTotal        *prometheus.CounterVec
	RecordsSkippedTotal *prometheus.CounterVec
	CacheHitsTotal      *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh registry per run or test.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Search requests by index and outcome",
			},
			[]string{"index", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Search request latency",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"index"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_retries_total",
				Help:      "Retries after transient failures",
			},
			[]string{"index"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Domain records extracted by source",
			},
			[]string{"source"},
		),
		RecordsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_skipped_total",
				Help:      "Names dropped during extraction",
			},
			[]string{"index"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Pages served from the response cache",
			},
			[]string{"index"},
		),
	}
}

func (m *Metrics) ObserveRequest(index, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(index, outcome).Inc()
	m.RequestDuration.WithLabelValues(index).Observe(d.Seconds())
}

func (m *Metrics) IncRetry(index string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(index).Inc()
}

func (m *Metrics) AddRecords(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) AddSkipped(index string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsSkippedTotal.WithLabelValues(index).Add(float64(n))
}

func (m *Metrics) IncCacheHit(index string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(index).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
