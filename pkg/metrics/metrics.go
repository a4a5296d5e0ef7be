// Package metrics keeps process wide counters and gauges and persists every
// sample into a tstorage time series database under the work directory.
package metrics

import (
	"errors"
	"path"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

const (
	CatalogStockedRows  = "catalog_stocked_rows"
	CatalogBulkActions  = "catalog_bulk_actions"
	ReviewImportedRows  = "review_imported_rows"
	ReviewExportedRows  = "review_exported_rows"
	ProcessCpuUse       = "process_cpuuse"
	ProcessMemUse       = "process_memuse"
	defaultPartitionDur = time.Hour
)

// Point is one stored sample
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

var (
	mu       sync.Mutex
	storage  tstorage.Storage
	counters = map[string]int64{}
	gauges   = map[string]int64{}
)

// InitMetrics opens the series storage at {workdir}/data/metrics.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		return nil
	}
	st, err := tstorage.NewStorage(
		tstorage.WithDataPath(path.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(defaultPartitionDur),
	)
	if err != nil {
		return err
	}
	storage = st
	return nil
}

// Close flushes and closes the series storage.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// AddCounter increases a counter and records its new total.
func AddCounter(name string, delta int64) {
	mu.Lock()
	counters[name] += delta
	total := counters[name]
	mu.Unlock()
	insert(name, total)
}

// SetGauge records the latest gauge value.
func SetGauge(name string, value int64) {
	mu.Lock()
	gauges[name] = value
	mu.Unlock()
	insert(name, value)
}

// GetCounter returns the in-process total of a counter.
func GetCounter(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	return counters[name]
}

// GetGauge returns the last gauge value.
func GetGauge(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	return gauges[name]
}

// Query returns the persisted samples of a metric between start and end.
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.Lock()
	st := storage
	mu.Unlock()
	if st == nil {
		return []Point{}, nil
	}
	dps, err := st.Select(name, nil, start.Unix(), end.Unix()+1)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(dps))
	for _, dp := range dps {
		points = append(points, Point{Timestamp: dp.Timestamp, Value: dp.Value})
	}
	return points, nil
}

func insert(name string, value int64) {
	mu.Lock()
	st := storage
	mu.Unlock()
	if st == nil {
		return
	}
	err := st.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Value: float64(value), Timestamp: time.Now().Unix()},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}

// reset clears in-memory state, tests only
func reset() {
	mu.Lock()
	defer mu.Unlock()
	counters = map[string]int64{}
	gauges = map[string]int64{}
}

// Summary aggregates the values of a series
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   float64 `json:"sum"`
}

// Summarize returns zero values for an empty series.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	data := make(stats.Float64Data, 0, len(points))
	for _, p := range points {
		data = append(data, p.Value)
	}
	min, _ := data.Min()
	max, _ := data.Max()
	mean, _ := data.Mean()
	sum, _ := data.Sum()
	return Summary{Count: len(data), Min: min, Max: max, Mean: mean, Sum: sum}
}
