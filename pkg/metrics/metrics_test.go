package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersWithoutStorage(t *testing.T) {
	reset()
	AddCounter(CatalogStockedRows, 2)
	AddCounter(CatalogStockedRows, 3)
	assert.Equal(t, int64(5), GetCounter(CatalogStockedRows))

	points, err := Query(CatalogStockedRows, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestPersistedSamples(t *testing.T) {
	reset()
	require.NoError(t, InitMetrics(t.TempDir()))
	defer func() { _ = Close() }()

	SetGauge(ProcessMemUse, 128)
	assert.Equal(t, int64(128), GetGauge(ProcessMemUse))

	points, err := Query(ProcessMemUse, time.Now().Add(-time.Minute), time.Now())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, float64(128), points[0].Value)
}

func TestQueryUnknownMetric(t *testing.T) {
	reset()
	require.NoError(t, InitMetrics(t.TempDir()))
	defer func() { _ = Close() }()

	points, err := Query("nothing_here", time.Now().Add(-time.Minute), time.Now())
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]Point{{Value: 2}, {Value: 4}, {Value: 9}})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, float64(2), s.Min)
	assert.Equal(t, float64(9), s.Max)
	assert.Equal(t, float64(5), s.Mean)
	assert.Equal(t, float64(15), s.Sum)
}
