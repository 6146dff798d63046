// Package metrics exposes evaluation outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/cwbudde/algo-mos/mos"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Collector records evaluations on its own registry. It implements
// mos.Observer.
type Collector struct {
	registry *prometheus.Registry

	Evaluations *prometheus.CounterVec
	Duration    prometheus.Histogram
	Lag         prometheus.Histogram
	Score       prometheus.Histogram
}

var _ mos.Observer = (*Collector)(nil)

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callmos_evaluations_total",
				Help: "Evaluations by outcome",
			},
			[]string{"outcome"},
		),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmos_evaluation_duration_seconds",
			Help:    "Wall time of one evaluation, including decoding and scoring",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmos_alignment_lag_samples",
			Help:    "Absolute alignment lag of scored pairs in samples",
			Buckets: []float64{0, 16, 80, 160, 800, 1600, 4000, 8000, 16000, 48000},
		}),
		Score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmos_mos_score",
			Help:    "Clamped MOS of scored pairs",
			Buckets: []float64{1.5, 2, 2.5, 3, 3.6, 4.2, 4.5, 5},
		}),
	}
	c.registry.MustRegister(
		c.Evaluations,
		c.Duration,
		c.Lag,
		c.Score,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveEvaluation(o mos.Outcome) {
	c.Evaluations.WithLabelValues(o.Kind).Inc()
	c.Duration.Observe(o.Duration.Seconds())
	if o.Kind != "success" {
		return
	}
	lag := o.Lag
	if lag < 0 {
		lag = -lag
	}
	c.Lag.Observe(float64(lag))
	c.Score.Observe(o.MOS)
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until the returned shutdown func is called.
func (c *Collector) Serve(addr string, log *logrus.Entry) (shutdown func(), err error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return nil, err
	case <-time.After(50 * time.Millisecond):
	}
	log.WithField("addr", addr).Info("serving metrics")
	return func() { _ = srv.Close() }, nil
}
