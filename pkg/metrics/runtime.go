package metrics

import (
	"runtime"
)

// RuntimeCollector samples Go runtime statistics into gauges.
type RuntimeCollector struct {
	goroutines  *Gauge
	heapAlloc   *Gauge
	heapObjects *Gauge
	gcPause     *Gauge
	numGC       *Gauge
}

// NewRuntimeCollector registers the runtime gauges on r.
func NewRuntimeCollector(r *Registry) *RuntimeCollector {
	rc := &RuntimeCollector{
		goroutines:  r.NewGauge("go_goroutines", "Number of goroutines that currently exist"),
		heapAlloc:   r.NewGauge("go_memstats_heap_alloc_bytes", "Number of heap bytes allocated and still in use"),
		heapObjects: r.NewGauge("go_memstats_heap_objects", "Number of allocated heap objects"),
		gcPause:     r.NewGauge("go_gc_duration_seconds", "Total GC pause duration in seconds"),
		numGC:       r.NewGauge("go_gc_cycles_total", "Total number of completed GC cycles"),
	}

	info := r.NewGauge("go_info", "Information about the Go environment", "version")
	if vec, err := info.WithLabels(runtime.Version()); err == nil {
		vec.Set(1)
	}
	return rc
}

// Collect refreshes every gauge. The registry calls it before each scrape.
func (rc *RuntimeCollector) Collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	_ = rc.goroutines.Set(float64(runtime.NumGoroutine()))
	_ = rc.heapAlloc.Set(float64(mem.HeapAlloc))
	_ = rc.heapObjects.Set(float64(mem.HeapObjects))
	// PauseTotalNs is cumulative; the PauseNs ring wraps after 256 cycles.
	_ = rc.gcPause.Set(float64(mem.PauseTotalNs) / 1e9)
	_ = rc.numGC.Set(float64(mem.NumGC))
}
