package config

import (
	"errors"
	"fmt"
	"maps"

	"github.com/mockhost/mockhost/internal/matching"
	"github.com/mockhost/mockhost/pkg/mock"
)

// ToEndpoint converts the file representation into a mock.Endpoint.
// FailRate percentages become fractions.
func (c *EndpointConfig) ToEndpoint() *mock.Endpoint {
	ep := &mock.Endpoint{
		ID:          c.ID,
		Method:      c.Method,
		Path:        c.Path,
		Name:        c.Name,
		Description: c.Description,
		Project:     c.Project,
		Variants:    make([]mock.Variant, len(c.Variants)),
	}
	for i, v := range c.Variants {
		ep.Variants[i] = mock.Variant{
			Name:      v.Name,
			Priority:  v.Priority,
			IsDefault: v.IsDefault,
			Status:    v.Status,
			Headers:   maps.Clone(v.Headers),
			Body:      v.Body.Clone(),
			BodyType:  v.BodyType,
			Delay:     v.Delay,
			FailRate:  v.FailRate / 100,
			Rules:     append([]mock.Rule(nil), v.Rules...),
			RuleLogic: v.RuleLogic,
		}
	}
	return ep
}

// FromEndpoint converts a mock.Endpoint into its file representation.
func FromEndpoint(ep *mock.Endpoint) EndpointConfig {
	c := EndpointConfig{
		ID:          ep.ID,
		Method:      ep.Method,
		Path:        ep.Path,
		Name:        ep.Name,
		Description: ep.Description,
		Project:     ep.Project,
		Variants:    make([]VariantConfig, len(ep.Variants)),
	}
	for i, v := range ep.Variants {
		c.Variants[i] = VariantConfig{
			Name:      v.Name,
			Priority:  v.Priority,
			IsDefault: v.IsDefault,
			Status:    v.Status,
			Headers:   maps.Clone(v.Headers),
			Body:      v.Body.Clone(),
			BodyType:  v.BodyType,
			Delay:     v.Delay,
			FailRate:  v.FailRate * 100,
			Rules:     append([]mock.Rule(nil), v.Rules...),
			RuleLogic: v.RuleLogic,
		}
	}
	return c
}

// ToEndpoints converts and validates every endpoint in the file. Each
// endpoint is compiled so malformed path templates and rule operands are
// reported here rather than at request time. All failures are returned
// together, each prefixed with its position.
func (f *File) ToEndpoints() ([]*mock.Endpoint, error) {
	out := make([]*mock.Endpoint, 0, len(f.Endpoints))
	var errs []error
	for i := range f.Endpoints {
		ep := f.Endpoints[i].ToEndpoint()
		if _, err := matching.CompileEndpoint(ep); err != nil {
			errs = append(errs, fmt.Errorf("endpoints[%d] (%s %s): %w", i, ep.Method, ep.Path, err))
			continue
		}
		out = append(out, ep)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Merge appends the endpoints of other to f. Server settings of f win; when
// f has none, other's are taken.
func (f *File) Merge(other *File) {
	if other == nil {
		return
	}
	if f.Server == nil && other.Server != nil {
		s := *other.Server
		f.Server = &s
	}
	f.Endpoints = append(f.Endpoints, other.Endpoints...)
}

// ServerOrDefault returns the file's server settings layered over
// DefaultServerConfig.
func (f *File) ServerOrDefault() *ServerConfig {
	cfg := DefaultServerConfig()
	if f == nil || f.Server == nil {
		return cfg
	}
	cfg.Overlay(f.Server)
	return cfg
}

// Overlay copies the non-zero fields of other onto c.
func (c *ServerConfig) Overlay(other *ServerConfig) {
	if other == nil {
		return
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.ReadTimeout != 0 {
		c.ReadTimeout = other.ReadTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxBodyBytes != 0 {
		c.MaxBodyBytes = other.MaxBodyBytes
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Project != "" {
		c.Project = other.Project
	}
	if other.ChaosSeed != 0 {
		c.ChaosSeed = other.ChaosSeed
	}
	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Redis.Addr != "" {
		c.Store.Redis = other.Store.Redis
	}
	if other.Metrics.Prometheus {
		c.Metrics.Prometheus = true
	}
	if other.Metrics.Datadog.Enabled {
		c.Metrics.Datadog = other.Metrics.Datadog
	}
}
