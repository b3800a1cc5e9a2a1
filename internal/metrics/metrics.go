// Package metrics defines the Prometheus collectors for the pool.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission kinds.
const (
	KindGuess    = "guess"
	KindSurvivor = "survivor"
	KindChampion = "champion"
)

// Leaderboard sources.
const (
	SourceComputed = "computed"
	SourceCache    = "cache"
)

// Metrics groups the pool collectors.
type Metrics struct {
	submissions     *prometheus.CounterVec
	computations    *prometheus.CounterVec
	computeDuration prometheus.Histogram
	results         prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_submissions_total",
			Help: "Guess and bet submissions by kind and result.",
		}, []string{"kind", "result"}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolao_leaderboard_computations_total",
			Help: "Leaderboard reads by source.",
		}, []string{"source"}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bolao_leaderboard_compute_seconds",
			Help:    "Time to load a snapshot and rank the leaderboard.",
			Buckets: prometheus.DefBuckets,
		}),
		results: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bolao_results_recorded_total",
			Help: "Final match scores recorded by operators.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.submissions, m.computations, m.computeDuration, m.results)
	}
	return m
}

// Submission counts one write attempt. result is "ok" or an error class.
func (m *Metrics) Submission(kind, result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, result).Inc()
}

// Leaderboard counts one leaderboard read served from source.
func (m *Metrics) Leaderboard(source string) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(source).Inc()
}

// ObserveCompute records how long a leaderboard computation took.
func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(d.Seconds())
}

// ResultRecorded counts one recorded match result.
func (m *Metrics) ResultRecorded() {
	if m == nil {
		return
	}
	m.results.Inc()
}
