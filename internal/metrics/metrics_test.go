package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveBookkeepingFailure("usage")
	second.ObserveBookkeepingFailure("usage")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.bookkeepingFailure.WithLabelValues("usage")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveQuestion("free", "answered")
	m.ObserveConfusion("simplify")
	m.ObserveLevelAdjustment("normal", "5yo")
	m.ObserveBookkeepingFailure("streak")
	m.ObserveUnlock("streak")
	m.ObserveGeneration(time.Second)
}

func TestObserveLabels(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.ObserveQuestion("premium", "answered")
	m.ObserveConfusion("retry")
	m.ObserveLevelAdjustment("advanced", "normal")
	m.ObserveUnlock("learning")
	m.ObserveGeneration(250 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.questions.WithLabelValues("premium", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.confusion.WithLabelValues("retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelAdjustments.WithLabelValues("advanced", "normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unlocks.WithLabelValues("learning")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.generation))
}
