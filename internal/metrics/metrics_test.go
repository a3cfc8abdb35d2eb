package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.MessagesProcessedTotal++
	c.OrdersCreatedTotal++
	c.IncrementError("PARSE_ERROR")
	c.IncrementError("PARSE_ERROR")
	c.IncrementError("UNAUTHORIZED")

	assert.Equal(t, 3, c.ErrorsTotal)
	assert.Equal(t, 2, c.ErrorsByCode["PARSE_ERROR"])
	assert.Equal(t, 1, c.ErrorsByCode["UNAUTHORIZED"])

	c.Reset()
	assert.Equal(t, 0, c.ErrorsTotal)
	assert.Empty(t, c.ErrorsByCode)
	assert.Equal(t, 0, c.MessagesProcessedTotal)
}

func TestSummaryDeterministic(t *testing.T) {
	c := NewCollector()
	for _, ms := range []float64{4, 2, 8, 6} {
		c.RecordTiming(SeriesParse, ms)
	}

	summary := c.Summary()[SeriesParse]
	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 5.0, summary.MeanMs)
	assert.Equal(t, 5.0, summary.P50Ms)
	assert.Equal(t, 8.0, summary.P95Ms)
	assert.Equal(t, 2.0, summary.MinMs)
	assert.Equal(t, 8.0, summary.MaxMs)
}

func TestSummaryEmptySeries(t *testing.T) {
	summary := NewCollector().Summary()
	for _, series := range []string{SeriesParse, SeriesStore, SeriesTotal} {
		assert.Equal(t, SeriesSummary{}, summary[series])
	}
}

func TestSummaryRounding(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(SeriesTotal, 1.0/3.0)
	c.RecordTiming(SeriesTotal, 1.0/3.0)

	summary := c.Summary()[SeriesTotal]
	assert.Equal(t, 0.333, summary.MeanMs)
	assert.Equal(t, 0.333, summary.P50Ms)
}

func TestTime(t *testing.T) {
	c := NewCollector()
	stop := c.Time(SeriesStore)
	stop()

	require.Len(t, c.StoreMs, 1)
	assert.GreaterOrEqual(t, c.StoreMs[0], 0.0)
}
