package metrics

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// DatadogConfig configures the DogStatsD provider.
type DatadogConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Addr      string   `json:"addr" yaml:"addr"`
	Namespace string   `json:"namespace" yaml:"namespace"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DefaultDatadogAddr is the local agent address.
const DefaultDatadogAddr = "127.0.0.1:8125"

// DatadogProvider adapts the DogStatsD client to Provider.
type DatadogProvider struct {
	client statsd.ClientInterface
}

// NewDatadog creates a client for the configured agent.
func NewDatadog(cfg DatadogConfig) (*DatadogProvider, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultDatadogAddr
	}

	opts := []statsd.Option{}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}

	client, err := statsd.New(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to dogstatsd at %s: %w", addr, err)
	}
	return &DatadogProvider{client: client}, nil
}

// NewDatadogWithClient wraps an existing client.
func NewDatadogWithClient(client statsd.ClientInterface) *DatadogProvider {
	return &DatadogProvider{client: client}
}

func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

// Close flushes and closes the client.
func (d *DatadogProvider) Close() error {
	return d.client.Close()
}
