package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSchedulerMetrics_CycleIncrement(t *testing.T) {
	m := NewSchedulerMetrics()
	m.CyclesTotal.Inc()
	m.LastTargetsCount.Set(42)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CyclesTotal))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.LastTargetsCount))
}

func TestWorkerMetrics_LabelledByDomain(t *testing.T) {
	m := NewWorkerMetrics()
	m.SuccessTotal.WithLabelValues("amazon.in").Inc()
	m.FailureTotal.WithLabelValues("flipkart.com").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SuccessTotal.WithLabelValues("amazon.in")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FailureTotal.WithLabelValues("flipkart.com")))
}

func TestNewSchedulerMetrics_IndependentInstancesDontCollide(t *testing.T) {
	m1 := NewSchedulerMetrics()
	m2 := NewSchedulerMetrics()
	m1.CyclesTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m1.CyclesTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(m2.CyclesTotal))
}
