// Package metrics exposes decode and feed counters over HTTP for scraping.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/vininsight/internal/logging"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	DecodeTotal    *prometheus.CounterVec
	DecodeLatency  *prometheus.HistogramVec
	FeedLoadsTotal *prometheus.CounterVec
	FleetVehicles  prometheus.Gauge
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DecodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vininsight_decode_requests_total",
				Help: "Decode API calls by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		DecodeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vininsight_decode_duration_seconds",
				Help:    "Latency of decode API calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		FeedLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vininsight_feed_loads_total",
				Help: "Vehicle feed loads by outcome.",
			},
			[]string{"outcome"},
		),
		FleetVehicles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vininsight_fleet_vehicles",
				Help: "Vehicles in the most recent successful feed load.",
			},
		),
	}
	m.registry.MustRegister(
		m.DecodeTotal,
		m.DecodeLatency,
		m.FeedLoadsTotal,
		m.FleetVehicles,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveDecode records one decode call. Its signature matches
// autodev.Observer.
func (m *Metrics) ObserveDecode(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DecodeTotal.WithLabelValues(op, outcome).Inc()
	m.DecodeLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveFeed records one feed load.
func (m *Metrics) ObserveFeed(vehicles int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.FeedLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.FeedLoadsTotal.WithLabelValues("success").Inc()
	m.FleetVehicles.Set(float64(vehicles))
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
