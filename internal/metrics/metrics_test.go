package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Submission(KindGuess, "ok")
	m.Submission(KindGuess, "ok")
	m.Submission(KindSurvivor, "invalid_team")
	m.Leaderboard(SourceCache)
	m.ResultRecorded()
	m.ObserveCompute(20 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues(KindGuess, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(KindSurvivor, "invalid_team")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.computations.WithLabelValues(SourceCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results))

	expected := `
# HELP bolao_results_recorded_total Final match scores recorded by operators.
# TYPE bolao_results_recorded_total counter
bolao_results_recorded_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bolao_results_recorded_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Submission(KindGuess, "ok")
		m.Leaderboard(SourceComputed)
		m.ObserveCompute(time.Second)
		m.ResultRecorded()
	})
}
