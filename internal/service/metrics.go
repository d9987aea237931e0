package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	orphaned      prometheus.Counter
	verifications *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrverify_uploads_total",
				Help: "Upload pipeline runs by outcome (success or the failed stage).",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qrverify_stage_duration_seconds",
				Help:    "Duration of each upload pipeline stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qrverify_orphaned_objects_total",
			Help: "Uploaded objects left in the object store by failed requests.",
		}),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qrverify_verifications_total",
				Help: "Verification lookups by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.stageDuration, m.orphaned, m.verifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) orphans(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphaned.Add(float64(n))
}

func (m *Metrics) verification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
}
