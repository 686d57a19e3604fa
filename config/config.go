// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"time"
)

// Config is the complete configuration for a coordkit deployment: which
// backing store its lock/cache/rate-limiter providers share, how they
// isolate keys, and the defaults each engine falls back to when a caller
// doesn't specify one explicitly.
type Config struct {
	Namespace NamespaceConfig `json:"namespace" yaml:"namespace"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	EventBus  EventBusConfig  `json:"event_bus" yaml:"event_bus"`
	Lock      LockConfig      `json:"lock" yaml:"lock"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// NamespaceConfig seeds the namespace.Namespace every provider is
// constructed with.
type NamespaceConfig struct {
	Root   []string `json:"root" yaml:"root"`
	RootID string   `json:"root_id" yaml:"root_id"`
}

// StorageConfig selects and configures the backing store shared by the
// lock, cache, and rate-limiter providers.
type StorageConfig struct {
	Type     string         `json:"type" yaml:"type"` // "memory", "redis", "postgres"
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	Table    string `json:"table" yaml:"table"`
}

// EventBusConfig selects how providers announce state changes.
type EventBusConfig struct {
	Type               string `json:"type" yaml:"type"` // "inprocess", "redis", "none"
	RedisChannelPrefix string `json:"redis_channel_prefix" yaml:"redis_channel_prefix"`
}

// LockConfig holds the defaults lock.Provider handles fall back to.
type LockConfig struct {
	DefaultTTL      time.Duration `json:"default_ttl" yaml:"default_ttl"`
	AcquireBudget   time.Duration `json:"acquire_budget" yaml:"acquire_budget"`
	AcquireInterval time.Duration `json:"acquire_interval" yaml:"acquire_interval"`
}

// RateLimitConfig holds the defaults ratelimit.Provider limiters fall back to.
type RateLimitConfig struct {
	DefaultLimit  int           `json:"default_limit" yaml:"default_limit"`
	DefaultWindow time.Duration `json:"default_window" yaml:"default_window"`
	Backoff       BackoffConfig `json:"backoff" yaml:"backoff"`
}

// BackoffConfig selects and parameterizes a ratelimit.BackoffFunc.
type BackoffConfig struct {
	Type           string        `json:"type" yaml:"type"` // "constant", "linear", "exponential", "polynomial"
	Base           time.Duration `json:"base" yaml:"base"`
	Factor         float64       `json:"factor" yaml:"factor"`     // exponential
	Exponent       float64       `json:"exponent" yaml:"exponent"` // polynomial
	Max            time.Duration `json:"max" yaml:"max"`
	JitterFraction float64       `json:"jitter_fraction" yaml:"jitter_fraction"` // 0 disables jitter
}

// CacheConfig holds the defaults cache.Provider instances fall back to.
type CacheConfig struct {
	DefaultTTL    time.Duration `json:"default_ttl" yaml:"default_ttl"` // 0 means no expiration
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"` // "debug", "info", "warn", "error"
	Format     string `json:"format" yaml:"format"` // "json", "console"
	OutputPath string `json:"output_path" yaml:"output_path"`
}

// MetricsConfig contains metrics and monitoring configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with default values: in-memory
// storage, an in-process event bus, and the same defaults DefaultWindow/
// DefaultLimit/DefaultTTL values a caller would otherwise have to pass to
// every New call by hand.
func DefaultConfig() *Config {
	return &Config{
		Namespace: NamespaceConfig{
			RootID: "coordkit",
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Host: "localhost",
				Port: 6379,
				DB:   0,
			},
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
				Table:   "coordkit",
			},
		},
		EventBus: EventBusConfig{
			Type:               "inprocess",
			RedisChannelPrefix: "coordkit:events:",
		},
		Lock: LockConfig{
			DefaultTTL:      30 * time.Second,
			AcquireBudget:   10 * time.Second,
			AcquireInterval: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			Backoff: BackoffConfig{
				Type: "constant",
				Base: time.Second,
			},
		},
		Cache: CacheConfig{
			SweepInterval: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// NewConfig creates a new default configuration. It is an alias for
// DefaultConfig.
func NewConfig() *Config {
	return DefaultConfig()
}
