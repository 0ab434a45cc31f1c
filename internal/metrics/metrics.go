// Package metrics exposes relay diagnostics as Prometheus collectors.
//
// Every counter lives in a registry owned by the Metrics value, so tests and
// multiple relay instances never fight over global registration. The
// /metrics endpoint is optional and only served when enabled in config.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	// Producer side.
	FramesCaptured prometheus.Counter
	FramesDropped  prometheus.Counter

	// Consumer side.
	FramesDelivered prometheus.Counter
	BytesDelivered  prometheus.Counter
	EmptyFrames     prometheus.Counter
	WriteErrors     prometheus.Counter
	Underflows      prometheus.Counter

	// Shared buffer.
	BufferDepth prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all relay metrics in a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_frames_captured_total",
			Help: "Total number of MIDI frames read from the serial port",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_frames_dropped_total",
			Help: "Total number of MIDI frames dropped because the frame buffer was full",
		}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_frames_delivered_total",
			Help: "Total number of MIDI frames written to the output port",
		}),
		BytesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_bytes_delivered_total",
			Help: "Total number of MIDI payload bytes written to the output port",
		}),
		EmptyFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_empty_frames_total",
			Help: "Total number of zero-length frames skipped instead of written",
		}),
		WriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_write_errors_total",
			Help: "Total number of per-frame output write failures",
		}),
		Underflows: factory.NewCounter(prometheus.CounterOpts{
			Name: "sta_buffer_underflows_total",
			Help: "Total number of consumer wake-ups that found an empty buffer",
		}),
		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sta_buffer_depth",
			Help: "Number of frames currently pending in the frame buffer",
		}),
		registry: registry,
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
