package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records pipeline outcomes.
type Metrics interface {
	PublishAttempt(platform, kind string, took time.Duration)
	DispatchFinished(platform, status, kind string)
	SweepFinished(report *SweepReport, took time.Duration)
	AccountsFlagged(count int)
}

type metrics struct {
	publishAttempts  *prometheus.CounterVec
	publishDuration  *prometheus.HistogramVec
	dispatches       *prometheus.CounterVec
	sweepPosts       *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	accountsFlagged  prometheus.Counter
	lastSweepSuccess prometheus.Gauge
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) Metrics {
	factory := promauto.With(reg)

	return &metrics{
		publishAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_attempts_total",
			Help: "Platform publish attempts by platform and error kind.",
		}, []string{"platform", "kind"}),
		publishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "publish_attempt_duration_seconds",
			Help:    "Duration in seconds of single platform publish attempts.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"platform"}),
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatches_total",
			Help: "Finished dispatches by platform, terminal status and error kind.",
		}, []string{"platform", "status", "kind"}),
		sweepPosts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_posts_total",
			Help: "Posts handled by due-post sweeps, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "sweep_duration_seconds",
			Help: "Duration in seconds of due-post sweeps.",
		}),
		accountsFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "accounts_flagged_reconnect_total",
			Help: "Social accounts flagged for reconnect by the token job.",
		}),
		lastSweepSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sweep_last_run_timestamp_seconds",
			Help: "Unix time of the last finished sweep.",
		}),
	}
}

func (m *metrics) PublishAttempt(platform, kind string, took time.Duration) {
	if kind == "" {
		kind = "OK"
	}
	m.publishAttempts.WithLabelValues(platform, kind).Inc()
	m.publishDuration.WithLabelValues(platform).Observe(took.Seconds())
}

func (m *metrics) DispatchFinished(platform, status, kind string) {
	m.dispatches.WithLabelValues(platform, status, kind).Inc()
}

func (m *metrics) SweepFinished(report *SweepReport, took time.Duration) {
	m.sweepPosts.WithLabelValues("materialized").Add(float64(report.Materialized))
	m.sweepPosts.WithLabelValues("published").Add(float64(report.Published))
	m.sweepPosts.WithLabelValues("failed").Add(float64(report.Failed))
	m.sweepPosts.WithLabelValues("skipped").Add(float64(report.Skipped))
	m.sweepPosts.WithLabelValues("reaped").Add(float64(report.Reaped))
	m.sweepDuration.Observe(took.Seconds())
	m.lastSweepSuccess.SetToCurrentTime()
}

func (m *metrics) AccountsFlagged(count int) {
	m.accountsFlagged.Add(float64(count))
}
