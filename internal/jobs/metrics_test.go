package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("poam:overdue-digest").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("poam:overdue-digest").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("poam:overdue-digest", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("poam:overdue-digest", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("poam:overdue-digest")))
}

func TestAddItemsIgnoresEmptyBatches(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddItems("artifact:orphan-sweep", "deleted", 3)
	m.AddItems("artifact:orphan-sweep", "deleted", 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.items.WithLabelValues("artifact:orphan-sweep", "deleted")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddItems("mail:send", "sent", 1)
	assert.NoError(t, m.Track("mail:send").End(nil))
}
