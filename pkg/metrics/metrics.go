package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
var ErrNegativeCounterValue = errors.New("counter cannot be decreased")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores float64 bits in a uint64 for atomic access.
type atomicFloat64 struct {
	bits uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&a.bits))
}

func (a *atomicFloat64) Store(val float64) {
	atomic.StoreUint64(&a.bits, math.Float64bits(val))
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&a.bits)
		next := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(&a.bits, old, math.Float64bits(next)) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Collect returns all samples for exposition.
	Collect() []Sample
}

// Sample is a single metric sample with labels.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// family holds one series per label combination. Counter, Gauge and
// Histogram embed it and differ only in the series type.
type family[S any] struct {
	name       string
	help       string
	labelNames []string
	newSeries  func(labels map[string]string) *S

	mu     sync.RWMutex
	series map[string]*S
	order  []string
}

func (f *family[S]) init(name, help string, labelNames []string, newSeries func(map[string]string) *S) {
	f.name = name
	f.help = help
	f.labelNames = labelNames
	f.newSeries = newSeries
	f.series = make(map[string]*S)
}

func (f *family[S]) Name() string { return f.name }
func (f *family[S]) Help() string { return f.help }

// lookup returns the series for values, creating it on first use.
func (f *family[S]) lookup(values []string) (*S, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expected %d labels, got %d", ErrLabelCountMismatch, f.name, len(f.labelNames), len(values))
	}

	key := strings.Join(values, "\x00")
	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	labels := make(map[string]string, len(f.labelNames))
	for i, name := range f.labelNames {
		labels[name] = values[i]
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; !ok {
		s = f.newSeries(labels)
		f.series[key] = s
		f.order = append(f.order, key)
	}
	return s, nil
}

// each calls fn for every series in creation order.
func (f *family[S]) each(fn func(*S)) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, key := range f.order {
		fn(f.series[key])
	}
}

// Reset drops every series.
func (f *family[S]) Reset() {
	f.mu.Lock()
	f.series = make(map[string]*S)
	f.order = nil
	f.mu.Unlock()
}

type scalar struct {
	labels map[string]string
	value  atomicFloat64
}

func newScalar(labels map[string]string) *scalar { return &scalar{labels: labels} }

// Counter is a monotonically increasing metric.
type Counter struct {
	family[scalar]
}

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// WithLabels returns the series for the given label values.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	s, err := c.lookup(values)
	if err != nil {
		return nil, err
	}
	return &CounterVec{s: s}, nil
}

// Inc increments a counter without labels.
func (c *Counter) Inc() error { return c.Add(1) }

// Add adds delta to a counter without labels.
func (c *Counter) Add(delta float64) error {
	vec, err := c.WithLabels()
	if err != nil {
		return err
	}
	return vec.Add(delta)
}

// Collect returns all samples.
func (c *Counter) Collect() []Sample {
	var samples []Sample
	c.each(func(s *scalar) {
		samples = append(samples, Sample{Name: c.name, Labels: s.labels, Value: s.value.Load()})
	})
	return samples
}

// CounterVec is one label combination of a Counter.
type CounterVec struct {
	s *scalar
}

// Inc increments the counter by 1.
func (v *CounterVec) Inc() error { return v.Add(1) }

// Add adds delta, which must not be negative.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	v.s.value.Add(delta)
	return nil
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	family[scalar]
}

// Type returns the metric type.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// WithLabels returns the series for the given label values.
func (g *Gauge) WithLabels(values ...string) (*GaugeVec, error) {
	s, err := g.lookup(values)
	if err != nil {
		return nil, err
	}
	return &GaugeVec{s: s}, nil
}

// Set sets a gauge without labels.
func (g *Gauge) Set(value float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Set(value)
	return nil
}

// Add adds delta to a gauge without labels.
func (g *Gauge) Add(delta float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Add(delta)
	return nil
}

// Collect returns all samples.
func (g *Gauge) Collect() []Sample {
	var samples []Sample
	g.each(func(s *scalar) {
		samples = append(samples, Sample{Name: g.name, Labels: s.labels, Value: s.value.Load()})
	})
	return samples
}

// GaugeVec is one label combination of a Gauge.
type GaugeVec struct {
	s *scalar
}

func (v *GaugeVec) Set(value float64) { v.s.value.Store(value) }
func (v *GaugeVec) Inc()              { v.s.value.Add(1) }
func (v *GaugeVec) Dec()              { v.s.value.Add(-1) }
func (v *GaugeVec) Add(delta float64) { v.s.value.Add(delta) }

type distribution struct {
	labels  map[string]string
	buckets []float64
	counts  []uint64
	sum     atomicFloat64
	count   uint64
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	family[distribution]
}

// Type returns the metric type.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// WithLabels returns the series for the given label values.
func (h *Histogram) WithLabels(values ...string) (*HistogramVec, error) {
	d, err := h.lookup(values)
	if err != nil {
		return nil, err
	}
	return &HistogramVec{d: d}, nil
}

// Observe records a value in a histogram without labels.
func (h *Histogram) Observe(value float64) error {
	vec, err := h.WithLabels()
	if err != nil {
		return err
	}
	vec.Observe(value)
	return nil
}

// Collect returns cumulative bucket samples plus _sum and _count per series.
func (h *Histogram) Collect() []Sample {
	var samples []Sample
	h.each(func(d *distribution) {
		var cumulative uint64
		for i, bound := range d.buckets {
			cumulative += atomic.LoadUint64(&d.counts[i])
			labels := make(map[string]string, len(d.labels)+1)
			for k, v := range d.labels {
				labels[k] = v
			}
			labels["le"] = formatFloat(bound)
			samples = append(samples, Sample{Name: h.name + "_bucket", Labels: labels, Value: float64(cumulative)})
		}
		samples = append(samples,
			Sample{Name: h.name + "_sum", Labels: d.labels, Value: d.sum.Load()},
			Sample{Name: h.name + "_count", Labels: d.labels, Value: float64(atomic.LoadUint64(&d.count))},
		)
	})
	return samples
}

// HistogramVec is one label combination of a Histogram.
type HistogramVec struct {
	d *distribution
}

// Observe records a value.
func (v *HistogramVec) Observe(value float64) {
	for i, bound := range v.d.buckets {
		if value <= bound {
			atomic.AddUint64(&v.d.counts[i], 1)
			break
		}
	}
	v.d.sum.Add(value)
	atomic.AddUint64(&v.d.count, 1)
}

// Registry holds registered metrics and serves them in the Prometheus text
// format.
type Registry struct {
	mu        sync.RWMutex
	metrics   []Metric
	names     map[string]struct{}
	onCollect []func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{}
	c.init(name, help, labels, newScalar)
	r.register(c)
	return c
}

// NewGauge creates and registers a gauge.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	g := &Gauge{}
	g.init(name, help, labels, newScalar)
	r.register(g)
	return g
}

// NewHistogram creates and registers a histogram. A +Inf bucket is appended
// when missing.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}

	h := &Histogram{}
	h.init(name, help, labels, func(l map[string]string) *distribution {
		return &distribution{labels: l, buckets: sorted, counts: make([]uint64, len(sorted))}
	})
	r.register(h)
	return h
}

// OnCollect registers fn to run before every exposition, for gauges that are
// sampled rather than updated.
func (r *Registry) OnCollect(fn func()) {
	r.mu.Lock()
	r.onCollect = append(r.onCollect, fn)
	r.mu.Unlock()
}

// register panics on duplicate names since they produce invalid output.
func (r *Registry) register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[m.Name()]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, m.Name()))
	}
	r.names[m.Name()] = struct{}{}
	r.metrics = append(r.metrics, m)
}

// WriteTo writes every metric with at least one sample.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	r.mu.RLock()
	metrics := append([]Metric(nil), r.metrics...)
	hooks := append([]func(){}, r.onCollect...)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}

	cw := &countingWriter{w: w}
	for _, m := range metrics {
		writeMetric(cw, m)
	}
	return cw.n, cw.err
}

// Handler serves the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = r.WriteTo(w)
	})
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func writeMetric(w io.Writer, m Metric) {
	samples := m.Collect()
	if len(samples) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", m.Name(), escapeHelp(m.Help()))
	_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", m.Name(), m.Type())
	for _, s := range samples {
		if len(s.Labels) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s\n", s.Name, formatFloat(s.Value))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s{%s} %s\n", s.Name, formatLabels(s.Labels), formatFloat(s.Value))
	}
}

// formatLabels renders key="value" pairs sorted by key.
func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + escapeLabelValue(labels[k]) + `"`
	}
	return strings.Join(parts, ",")
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%g", v)
	}
}

func escapeHelp(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// DelayBuckets are histogram buckets (seconds) sized for mock latencies,
// which are dominated by configured route delays of a few hundred ms.
var DelayBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5}
