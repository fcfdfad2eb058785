package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages reported in landcover_stage_duration_seconds.
const (
	StageRetrieve  = "retrieve"
	StageAggregate = "aggregate"
	StageCompare   = "compare"
	StageRender    = "render"
	StagePersist   = "persist"
)

// Metrics is the set of collectors for analysis runs. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	Samples       prometheus.Counter
	StageDuration *prometheus.HistogramVec
}

// NewMetrics registers the run collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landcover",
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"status"}),
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "landcover",
			Name:      "samples_total",
			Help:      "Samples aggregated across all years and runs.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "landcover",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
	}
	m.Registry.MustRegister(m.Runs, m.Samples, m.StageDuration)
	return m
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunFinished counts a run as "ok" or "error".
func (m *Metrics) RunFinished(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Runs.WithLabelValues(status).Inc()
}

// AddSamples adds n to the aggregated sample counter.
func (m *Metrics) AddSamples(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Samples.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
