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
	"fmt"
)

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	if err := c.validateNamespace(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEventBus(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNamespace() error {
	if c.Namespace.RootID == "" {
		return fmt.Errorf("namespace root_id must not be empty")
	}
	return nil
}

func (c *Config) validateStorage() error {
	validTypes := map[string]bool{
		"memory":   true,
		"redis":    true,
		"postgres": true,
	}
	if !validTypes[c.Storage.Type] {
		return fmt.Errorf("storage type must be one of: memory, redis, postgres")
	}

	if c.Storage.Type == "redis" {
		if c.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host must not be empty")
		}
		if c.Storage.Redis.Port < 1 || c.Storage.Redis.Port > 65535 {
			return fmt.Errorf("redis port must be between 1 and 65535")
		}
	}

	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.Host == "" {
			return fmt.Errorf("postgres host must not be empty")
		}
		if c.Storage.Postgres.Port < 1 || c.Storage.Postgres.Port > 65535 {
			return fmt.Errorf("postgres port must be between 1 and 65535")
		}
		if c.Storage.Postgres.User == "" {
			return fmt.Errorf("postgres user must not be empty")
		}
		if c.Storage.Postgres.Database == "" {
			return fmt.Errorf("postgres database must not be empty")
		}
		if c.Storage.Postgres.Table == "" {
			return fmt.Errorf("postgres table must not be empty")
		}
	}

	return nil
}

func (c *Config) validateEventBus() error {
	validTypes := map[string]bool{
		"inprocess": true,
		"redis":     true,
		"none":      true,
	}
	if !validTypes[c.EventBus.Type] {
		return fmt.Errorf("event bus type must be one of: inprocess, redis, none")
	}
	if c.EventBus.Type == "redis" && c.Storage.Type != "redis" {
		return fmt.Errorf("event bus type redis requires storage type redis")
	}
	return nil
}

func (c *Config) validateLock() error {
	if c.Lock.DefaultTTL <= 0 {
		return fmt.Errorf("lock default_ttl must be positive")
	}
	if c.Lock.AcquireBudget <= 0 {
		return fmt.Errorf("lock acquire_budget must be positive")
	}
	if c.Lock.AcquireInterval <= 0 {
		return fmt.Errorf("lock acquire_interval must be positive")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.DefaultLimit <= 0 {
		return fmt.Errorf("rate limit default_limit must be positive")
	}
	if c.RateLimit.DefaultWindow <= 0 {
		return fmt.Errorf("rate limit default_window must be positive")
	}

	validBackoffs := map[string]bool{
		"constant":    true,
		"linear":      true,
		"exponential": true,
		"polynomial":  true,
	}
	if !validBackoffs[c.RateLimit.Backoff.Type] {
		return fmt.Errorf("rate limit backoff type must be one of: constant, linear, exponential, polynomial")
	}
	if c.RateLimit.Backoff.Base <= 0 {
		return fmt.Errorf("rate limit backoff base must be positive")
	}
	if c.RateLimit.Backoff.Type == "exponential" && c.RateLimit.Backoff.Factor <= 1 {
		return fmt.Errorf("rate limit exponential backoff factor must be greater than 1")
	}
	if c.RateLimit.Backoff.Type == "polynomial" && c.RateLimit.Backoff.Exponent <= 1 {
		return fmt.Errorf("rate limit polynomial backoff exponent must be greater than 1")
	}
	if c.RateLimit.Backoff.JitterFraction < 0 || c.RateLimit.Backoff.JitterFraction >= 1 {
		return fmt.Errorf("rate limit backoff jitter_fraction must be in [0, 1)")
	}

	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535")
	}
	if c.Metrics.Path == "" {
		return fmt.Errorf("metrics path must not be empty")
	}
	return nil
}
