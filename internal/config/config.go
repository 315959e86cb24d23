package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sendrelay/smsgw/internal/util"
)

// Supported auth store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// GatewayConfig is the root configuration for the SMS gateway.
type GatewayConfig struct {
	Server    ServerConfig     `yaml:"server"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Logging   LoggingConfig    `yaml:"logging"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Auth      AuthConfig       `yaml:"auth"`
	RateLimit RateLimitConfig  `yaml:"rateLimit"`
	Upstreams []UpstreamConfig `yaml:"upstreams"`
	Routes    []RouteConfig    `yaml:"routes"`
}

// ServerConfig configures the main HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// MetricsConfig configures the metrics and health listener.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// HashAlgorithm is "sha256" or "bcrypt".
	HashAlgorithm string `yaml:"hashAlgorithm"`

	// Store is "memory" or "redis".
	Store string `yaml:"store"`

	Redis RedisConfig `yaml:"redis"`

	// Keys seeds the in-memory store.
	Keys []KeyConfig `yaml:"keys"`
}

// RedisConfig configures the Redis-backed key store.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// KeyConfig is a statically provisioned API key.
type KeyConfig struct {
	ID          string     `yaml:"id"`
	UserID      string     `yaml:"userId"`
	Name        string     `yaml:"name"`
	SecretHash  string     `yaml:"secretHash"`
	Permissions []string   `yaml:"permissions"`
	RateLimit   int        `yaml:"rateLimit"`
	Enabled     bool       `yaml:"enabled"`
	ExpiresAt   *time.Time `yaml:"expiresAt"`
}

// RateLimitConfig configures the per-key rate limiter defaults.
type RateLimitConfig struct {
	DefaultRPS   int      `yaml:"defaultRps"`
	DefaultBurst int      `yaml:"defaultBurst"`
	KeyTTL       Duration `yaml:"keyTTL"`
}

// UpstreamConfig configures one backend service.
type UpstreamConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout Duration      `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes an upstream circuit breaker.
type BreakerConfig struct {
	Threshold int      `yaml:"threshold"`
	Timeout   Duration `yaml:"timeout"`
}

// RouteConfig registers one route in the gateway's table.
type RouteConfig struct {
	Method       string   `yaml:"method"`
	Pattern      string   `yaml:"pattern"`
	Permissions  []string `yaml:"permissions"`
	RateLimit    int      `yaml:"rateLimit"`
	Upstream     string   `yaml:"upstream"`
	UpstreamPath string   `yaml:"upstreamPath"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			SamplingRate: 1.0,
		},
		Auth: AuthConfig{
			HashAlgorithm: "sha256",
			Store:         StoreMemory,
		},
		RateLimit: RateLimitConfig{
			DefaultRPS:   50,
			DefaultBurst: 100,
		},
	}
}

// applyDefaults fills zero values with defaults.
func (c *GatewayConfig) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = def.Server.IdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = def.Metrics.Address
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = def.Tracing.SamplingRate
	}
	if c.Auth.HashAlgorithm == "" {
		c.Auth.HashAlgorithm = def.Auth.HashAlgorithm
	}
	if c.Auth.Store == "" {
		c.Auth.Store = def.Auth.Store
	}
	if c.RateLimit.DefaultRPS == 0 {
		c.RateLimit.DefaultRPS = def.RateLimit.DefaultRPS
	}
	if c.RateLimit.DefaultBurst == 0 {
		c.RateLimit.DefaultBurst = def.RateLimit.DefaultBurst
	}
}

// Validate checks the configuration for inconsistencies.
func (c *GatewayConfig) Validate() error {
	if c.Auth.Store != StoreMemory && c.Auth.Store != StoreRedis {
		return util.NewConfigError("auth.store",
			fmt.Sprintf("unknown store %q, want %q or %q", c.Auth.Store, StoreMemory, StoreRedis))
	}

	if c.Auth.Store == StoreRedis && c.Auth.Redis.Address == "" {
		return util.NewConfigError("auth.redis.address", "required when auth.store is redis")
	}

	if c.Auth.HashAlgorithm != "sha256" && c.Auth.HashAlgorithm != "bcrypt" {
		return util.NewConfigError("auth.hashAlgorithm",
			fmt.Sprintf("unknown algorithm %q, want sha256 or bcrypt", c.Auth.HashAlgorithm))
	}

	for i, key := range c.Auth.Keys {
		field := fmt.Sprintf("auth.keys[%d]", i)
		if key.ID == "" {
			return util.NewConfigError(field+".id", "required")
		}
		if key.UserID == "" {
			return util.NewConfigError(field+".userId", "required")
		}
		if key.SecretHash == "" {
			return util.NewConfigError(field+".secretHash", "required")
		}
	}

	upstreams := make(map[string]bool, len(c.Upstreams))
	for i, up := range c.Upstreams {
		field := fmt.Sprintf("upstreams[%d]", i)
		if up.Name == "" {
			return util.NewConfigError(field+".name", "required")
		}
		if upstreams[up.Name] {
			return util.NewConfigError(field+".name", fmt.Sprintf("duplicate upstream %q", up.Name))
		}
		upstreams[up.Name] = true
		if up.URL == "" {
			return util.NewConfigError(field+".url", "required")
		}
	}

	for i, route := range c.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if route.Method == "" {
			return util.NewConfigError(field+".method", "required")
		}
		if route.Pattern == "" || !strings.HasPrefix(route.Pattern, "/") {
			return util.NewConfigError(field+".pattern", "must start with /")
		}
		if route.Upstream == "" {
			return util.NewConfigError(field+".upstream", "required")
		}
		if !upstreams[route.Upstream] {
			return util.NewConfigError(field+".upstream", fmt.Sprintf("unknown upstream %q", route.Upstream))
		}
		if route.UpstreamPath == "" || !strings.HasPrefix(route.UpstreamPath, "/") {
			return util.NewConfigError(field+".upstreamPath", "must start with /")
		}
	}

	return nil
}
