package config

import (
	"github.com/mockhost/mockhost/pkg/metrics"
	"github.com/mockhost/mockhost/pkg/mock"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Default server settings.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 30
	DefaultWriteTimeout    = 60
	DefaultShutdownTimeout = 5
	DefaultMaxBodyBytes    = 10 << 20
)

// ServerConfig holds settings for the HTTP engine.
type ServerConfig struct {
	// Port is the HTTP listen port; 0 picks a free port
	Port int `json:"port" yaml:"port" validate:"min=0,max=65535"`

	// ReadTimeout is the HTTP read timeout in seconds
	ReadTimeout int `json:"readTimeout" yaml:"readTimeout" validate:"min=0"`

	// WriteTimeout is the HTTP write timeout in seconds. It must leave room
	// for the largest configured delay.
	WriteTimeout int `json:"writeTimeout" yaml:"writeTimeout" validate:"min=0"`

	// ShutdownTimeout bounds graceful shutdown in seconds
	ShutdownTimeout int `json:"shutdownTimeout" yaml:"shutdownTimeout" validate:"min=0"`

	// MaxBodyBytes caps the request body read for rule evaluation
	MaxBodyBytes int64 `json:"maxBodyBytes" yaml:"maxBodyBytes" validate:"min=0"`

	LogLevel  string `json:"logLevel" yaml:"logLevel" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `json:"logFormat" yaml:"logFormat" validate:"omitempty,oneof=text json"`

	// Project limits the served endpoints to one project
	Project string `json:"project,omitempty" yaml:"project,omitempty"`

	// ChaosSeed makes failure draws reproducible when non-zero. Debugging
	// only: draws share one locked stream across all requests
	ChaosSeed uint64 `json:"chaosSeed,omitempty" yaml:"chaosSeed,omitempty"`

	Store   StoreConfig    `json:"store" yaml:"store"`
	Metrics metrics.Config `json:"metrics" yaml:"metrics"`
}

// StoreConfig selects the endpoint store backend.
type StoreConfig struct {
	Backend string      `json:"backend" yaml:"backend" validate:"omitempty,oneof=memory redis"`
	Redis   RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds connection settings for the Redis store.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db" validate:"min=0"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		LogLevel:        "info",
		LogFormat:       "text",
		Store:           StoreConfig{Backend: StoreMemory},
	}
}

// File is one configuration document.
type File struct {
	// Version of the document format
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Server settings; nil keeps the defaults
	Server *ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Include lists glob patterns of further endpoint files, resolved
	// relative to the including file
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`

	// Endpoints in declaration order
	Endpoints []EndpointConfig `json:"endpoints" yaml:"endpoints"`
}

// EndpointConfig is the file representation of mock.Endpoint.
type EndpointConfig struct {
	ID          string          `json:"id,omitempty" yaml:"id,omitempty"`
	Method      string          `json:"method" yaml:"method"`
	Path        string          `json:"path" yaml:"path"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Project     string          `json:"project,omitempty" yaml:"project,omitempty"`
	Variants    []VariantConfig `json:"variants" yaml:"variants"`
}

// VariantConfig is the file representation of mock.Variant. FailRate is a
// percentage.
type VariantConfig struct {
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Priority  int               `json:"priority,omitempty" yaml:"priority,omitempty"`
	IsDefault bool              `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
	Status    int               `json:"status,omitempty" yaml:"status,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body      mock.Value        `json:"body" yaml:"body"`
	BodyType  mock.BodyType     `json:"bodyType,omitempty" yaml:"bodyType,omitempty"`
	Delay     int               `json:"delay,omitempty" yaml:"delay,omitempty"`
	FailRate  float64           `json:"failRate,omitempty" yaml:"failRate,omitempty"`
	Rules     []mock.Rule       `json:"rules,omitempty" yaml:"rules,omitempty"`
	RuleLogic mock.RuleLogic    `json:"ruleLogic,omitempty" yaml:"ruleLogic,omitempty"`
}
