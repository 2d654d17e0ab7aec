// Package metrics records generation activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caduceus"

// Recorder owns a private registry with the generation collectors.
type Recorder struct {
	registry      *prometheus.Registry
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	stageTime     *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runTime       prometheus.Histogram
}

// New creates a recorder with process and Go runtime collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Provider calls by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		providerTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Provider call latency by purpose.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"purpose"}),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of successful stages including the context summary.",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120},
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"outcome"}),
		runTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of generation runs.",
			Buckets:   prometheus.ExponentialBuckets(15, 2, 7),
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.providerCalls,
		r.providerTime,
		r.stageTime,
		r.runs,
		r.runTime,
	)

	return r
}

// ProviderCall records one provider call.
func (r *Recorder) ProviderCall(purpose string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.providerCalls.WithLabelValues(purpose, outcome).Inc()
	r.providerTime.WithLabelValues(purpose).Observe(d.Seconds())
}

// StageCompleted records a successful stage.
func (r *Recorder) StageCompleted(stage string, d time.Duration) {
	r.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished records the outcome of a run.
func (r *Recorder) RunFinished(outcome string, d time.Duration) {
	r.runs.WithLabelValues(outcome).Inc()
	r.runTime.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
