package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("GET", OutcomeSuccess, 10*time.Millisecond)
	m.Observe("GET", OutcomeSuccess, 20*time.Millisecond)
	m.Observe("PUT", OutcomeAborted, time.Millisecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.requests.WithLabelValues("GET", OutcomeSuccess)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("PUT", OutcomeAborted)))

	count, err := promtest.GatherAndCount(reg, "s3sig_client_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_Uploaded(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Uploaded("PUT", 2500)
	m.Uploaded("PUT", 0)
	m.Uploaded("PUT", -1)

	assert.Equal(t, 2500.0, promtest.ToFloat64(m.uploaded.WithLabelValues("PUT")))
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.Observe("HEAD", OutcomeError, time.Millisecond)
	b.Observe("HEAD", OutcomeError, time.Millisecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(a.requests.WithLabelValues("HEAD", OutcomeError)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("GET", OutcomeSuccess, time.Second)
		m.Uploaded("PUT", 10)
	})
}
