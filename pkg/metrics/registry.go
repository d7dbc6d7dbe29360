package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultBuckets are the histogram bounds, in milliseconds.
var DefaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

type family struct {
	name   string
	kind   kind
	series map[string]*series
}

type series struct {
	labels [][2]string
	value  float64
	counts []uint64
	sum    float64
	count  uint64
}

// Registry is an in-process Provider that renders Prometheus text.
type Registry struct {
	mu        sync.Mutex
	namespace string
	buckets   []float64
	families  map[string]*family
}

// NewRegistry creates an empty registry. Metric names are prefixed with
// namespace and an underscore.
func NewRegistry(namespace string) *Registry {
	return &Registry{
		namespace: namespace,
		buckets:   DefaultBuckets,
		families:  make(map[string]*family),
	}
}

// Count adds value to a counter. Negative values are rejected.
func (r *Registry) Count(name string, value float64, tags []string) error {
	if value < 0 {
		return fmt.Errorf("counter %s cannot decrease", name)
	}
	s, err := r.series(name, kindCounter, tags)
	if err != nil {
		return err
	}
	s.value += value
	r.mu.Unlock()
	return nil
}

// Gauge sets a gauge.
func (r *Registry) Gauge(name string, value float64, tags []string) error {
	s, err := r.series(name, kindGauge, tags)
	if err != nil {
		return err
	}
	s.value = value
	r.mu.Unlock()
	return nil
}

// Histogram records an observation.
func (r *Registry) Histogram(name string, value float64, tags []string) error {
	s, err := r.series(name, kindHistogram, tags)
	if err != nil {
		return err
	}
	if s.counts == nil {
		s.counts = make([]uint64, len(r.buckets))
	}
	for i, bound := range r.buckets {
		if value <= bound {
			s.counts[i]++
		}
	}
	s.sum += value
	s.count++
	r.mu.Unlock()
	return nil
}

// series returns the series for name and tags with r.mu held. The caller
// must unlock on success.
func (r *Registry) series(name string, k kind, tags []string) (*series, error) {
	full := r.metricName(name)
	labels := tagLabels(tags)
	key := labelsKey(labels)

	r.mu.Lock()
	f, ok := r.families[full]
	if !ok {
		f = &family{name: full, kind: k, series: make(map[string]*series)}
		r.families[full] = f
	} else if f.kind != k {
		r.mu.Unlock()
		return nil, fmt.Errorf("metric %s is a %s, not a %s", full, f.kind, k)
	}

	s, ok := f.series[key]
	if !ok {
		s = &series{labels: labels}
		f.series[key] = s
	}
	return s, nil
}

// Value returns the current value of a counter or gauge, or the observation
// count of a histogram. Missing series report 0.
func (r *Registry) Value(name string, tags ...string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[r.metricName(name)]
	if !ok {
		return 0
	}
	s, ok := f.series[labelsKey(tagLabels(tags))]
	if !ok {
		return 0
	}
	if f.kind == kindHistogram {
		return float64(s.count)
	}
	return s.value
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WriteTo(w)
	})
}

// WriteTo writes every metric, sorted by name and labels.
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.families))
	for n := range r.families {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		f := r.families[n]
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", f.name, f.kind)

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			s := f.series[k]
			if f.kind != kindHistogram {
				_, _ = fmt.Fprintf(w, "%s%s %s\n", f.name, formatLabels(s.labels), formatFloat(s.value))
				continue
			}
			for i, bound := range r.buckets {
				le := append(slices.Clone(s.labels), [2]string{"le", formatFloat(bound)})
				_, _ = fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, formatLabels(le), s.counts[i])
			}
			inf := append(slices.Clone(s.labels), [2]string{"le", "+Inf"})
			_, _ = fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, formatLabels(inf), s.count)
			_, _ = fmt.Fprintf(w, "%s_sum%s %s\n", f.name, formatLabels(s.labels), formatFloat(s.sum))
			_, _ = fmt.Fprintf(w, "%s_count%s %d\n", f.name, formatLabels(s.labels), s.count)
		}
	}
}

func (r *Registry) metricName(name string) string {
	name = sanitizeName(name)
	if r.namespace == "" {
		return name
	}
	return r.namespace + "_" + name
}

func sanitizeName(name string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			return c
		default:
			return '_'
		}
	}, name)
}

// tagLabels converts DogStatsD tags into sorted label pairs.
func tagLabels(tags []string) [][2]string {
	labels := make([][2]string, 0, len(tags))
	for _, t := range tags {
		k, v := splitTag(t)
		labels = append(labels, [2]string{sanitizeName(k), v})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i][0] < labels[j][0] })
	return labels
}

func labelsKey(labels [][2]string) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l[0] + "\x00" + l[1]
	}
	return strings.Join(parts, "\x01")
}

// formatLabels formats labels as {key="value",key="value"}.
func formatLabels(labels [][2]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l[0] + `="` + escapeLabelValue(l[1]) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
