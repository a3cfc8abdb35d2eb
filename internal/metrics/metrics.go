// Package metrics collects operation counters and timing samples across CLI
// invocations. The collector is a plain value snapshotted into the store
// between runs; summaries use deterministic rounding so output is stable.
package metrics

import (
	"math"
	"sort"
	"time"
)

// Timing series names.
const (
	SeriesParse = "parse_ms"
	SeriesStore = "store_ms"
	SeriesTotal = "total_ms"
)

// Collector accumulates counters and timing samples. It is not safe for
// concurrent use; operations are single-threaded per invocation.
type Collector struct {
	MessagesProcessedTotal int            `json:"messages_processed_total"`
	OrdersCreatedTotal     int            `json:"orders_created_total"`
	OrdersRejectedTotal    int            `json:"orders_rejected_total"`
	OrdersFulfilledTotal   int            `json:"orders_fulfilled_total"`
	ErrorsTotal            int            `json:"errors_total"`
	ErrorsByCode           map[string]int `json:"errors_by_code"`

	ParseMs []float64 `json:"parse_ms"`
	StoreMs []float64 `json:"store_ms"`
	TotalMs []float64 `json:"total_ms"`
}

func NewCollector() *Collector {
	return &Collector{ErrorsByCode: make(map[string]int)}
}

// IncrementError bumps the total and per-code error counters.
func (c *Collector) IncrementError(code string) {
	c.ErrorsTotal++
	if c.ErrorsByCode == nil {
		c.ErrorsByCode = make(map[string]int)
	}
	c.ErrorsByCode[code]++
}

// Reset clears all counters and timing samples.
func (c *Collector) Reset() {
	*c = Collector{ErrorsByCode: make(map[string]int)}
}

// RecordTiming appends a sample in milliseconds to the named series.
func (c *Collector) RecordTiming(series string, durationMs float64) {
	switch series {
	case SeriesParse:
		c.ParseMs = append(c.ParseMs, durationMs)
	case SeriesStore:
		c.StoreMs = append(c.StoreMs, durationMs)
	case SeriesTotal:
		c.TotalMs = append(c.TotalMs, durationMs)
	}
}

// Time starts a timer for the named series and returns a stop function that
// records the elapsed duration.
func (c *Collector) Time(series string) func() {
	start := time.Now()
	return func() {
		c.RecordTiming(series, float64(time.Since(start).Nanoseconds())/1e6)
	}
}

// SeriesSummary holds deterministic summary statistics for one series.
type SeriesSummary struct {
	Count  int     `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
}

// Summary returns statistics for every timing series.
func (c *Collector) Summary() map[string]SeriesSummary {
	return map[string]SeriesSummary{
		SeriesParse: summarize(c.ParseMs),
		SeriesStore: summarize(c.StoreMs),
		SeriesTotal: summarize(c.TotalMs),
	}
}

func summarize(samples []float64) SeriesSummary {
	if len(samples) == 0 {
		return SeriesSummary{}
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	count := len(sorted)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}

	p95Index := int(math.Ceil(float64(count)*0.95)) - 1
	if p95Index < 0 {
		p95Index = 0
	}
	if p95Index > count-1 {
		p95Index = count - 1
	}

	return SeriesSummary{
		Count:  count,
		MeanMs: round3(sum / float64(count)),
		P50Ms:  round3(median(sorted)),
		P95Ms:  round3(sorted[p95Index]),
		MinMs:  round3(sorted[0]),
		MaxMs:  round3(sorted[count-1]),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
