package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Provider is the sink for metrics.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Metric names recorded by the engine.
const (
	ResolveCount     = "resolve.count"
	ResolveLatencyMs = "resolve.latency_ms"
	ChaosDelayMs     = "chaos.delay_ms"
	EndpointsTotal   = "endpoints.total"
	SnapshotCompiles = "snapshot.compiles"
)

// NoopProvider is used when metrics are disabled.
type NoopProvider struct{}

func (NoopProvider) Count(string, float64, []string) error     { return nil }
func (NoopProvider) Gauge(string, float64, []string) error     { return nil }
func (NoopProvider) Histogram(string, float64, []string) error { return nil }

// Multi fans out to several providers. Every provider is called; the errors
// are joined.
type Multi []Provider

func (m Multi) Count(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Count(name, value, tags) })
}

func (m Multi) Gauge(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Gauge(name, value, tags) })
}

func (m Multi) Histogram(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Histogram(name, value, tags) })
}

func (m Multi) each(fn func(Provider) error) error {
	var errs []error
	for _, p := range m {
		if err := fn(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tag formats a DogStatsD tag.
func Tag(key, value string) string {
	return key + ":" + value
}

// Config selects and configures providers.
type Config struct {
	// Prometheus enables the in-process Registry.
	Prometheus bool `json:"prometheus" yaml:"prometheus"`

	Datadog DatadogConfig `json:"datadog" yaml:"datadog"`
}

// Setup builds the provider described by cfg. The returned Registry is nil
// unless Prometheus output is enabled.
func Setup(cfg Config) (Provider, *Registry, error) {
	var (
		providers []Provider
		registry  *Registry
	)

	if cfg.Prometheus {
		registry = NewRegistry("mockhost")
		providers = append(providers, registry)
	}

	if cfg.Datadog.Enabled {
		dd, err := NewDatadog(cfg.Datadog)
		if err != nil {
			return nil, nil, fmt.Errorf("setting up datadog metrics: %w", err)
		}
		providers = append(providers, dd)
	}

	switch len(providers) {
	case 0:
		return NoopProvider{}, nil, nil
	case 1:
		return providers[0], registry, nil
	default:
		return Multi(providers), registry, nil
	}
}

// Close releases providers that hold resources, such as a DogStatsD
// client. Providers without a Close method are ignored.
func Close(p Provider) error {
	switch t := p.(type) {
	case Multi:
		return t.each(Close)
	case io.Closer:
		return t.Close()
	default:
		return nil
	}
}

// splitTag splits "key:value". A tag without a colon becomes key="true".
func splitTag(tag string) (string, string) {
	k, v, ok := strings.Cut(tag, ":")
	if !ok {
		return tag, "true"
	}
	return k, v
}
