package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Failure kinds recorded in the failures counter.
const (
	FailureCompile  = "program_compile"
	FailureMap      = "buffer_map"
	FailureDegraded = "degraded"
)

// Collectors holds the simulation's Prometheus instruments. Every series
// carries a sim_id label so several instances can share a scrape target.
type Collectors struct {
	reg *prometheus.Registry

	FrameSeconds prometheus.Histogram
	Steps        prometheus.Counter
	Dispatches   prometheus.Counter
	Reloads      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	FPS          prometheus.Gauge
	TimeStep     prometheus.Gauge
	Particles    prometheus.Gauge
}

func NewCollectors(simID string) *Collectors {
	labels := prometheus.Labels{"sim_id": simID}
	c := &Collectors{
		reg: prometheus.NewRegistry(),
		FrameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "gravsim_frame_seconds",
			Help:        "Wall time spent on one rendered frame",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
			ConstLabels: labels,
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gravsim_steps_total",
			Help:        "Fixed physics steps taken",
			ConstLabels: labels,
		}),
		Dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gravsim_dispatches_total",
			Help:        "Compute dispatches issued",
			ConstLabels: labels,
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gravsim_program_reloads_total",
			Help:        "Program reload attempts by result",
			ConstLabels: labels,
		}, []string{"result"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gravsim_failures_total",
			Help:        "Recoverable failures by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		FPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gravsim_fps",
			Help:        "Frame rate averaged over the last report window",
			ConstLabels: labels,
		}),
		TimeStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gravsim_time_step",
			Help:        "Simulated time advanced per physics step",
			ConstLabels: labels,
		}),
		Particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gravsim_particles",
			Help:        "Particles in the simulation buffer",
			ConstLabels: labels,
		}),
	}
	c.reg.MustRegister(
		c.FrameSeconds, c.Steps, c.Dispatches, c.Reloads, c.Failures,
		c.FPS, c.TimeStep, c.Particles,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry { return c.reg }

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, c *Collectors, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("metrics endpoint listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
