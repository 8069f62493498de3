package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RequestsTotal.WithLabelValues("GET", "/api/v1/services", "200").Inc()
	c.RequestsTotal.WithLabelValues("GET", "/api/v1/services", "200").Inc()
	c.RequestDuration.WithLabelValues("GET", "/api/v1/services").Observe(0.042)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	counter, ok := byName["homelab_api_requests_total"]
	require.True(t, ok)
	require.Len(t, counter.GetMetric(), 1)
	assert.Equal(t, float64(2), counter.GetMetric()[0].GetCounter().GetValue())

	hist, ok := byName["homelab_api_request_duration_seconds"]
	require.True(t, ok)
	require.Len(t, hist.GetMetric(), 1)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestCollectorDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
