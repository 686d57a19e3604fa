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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a file (YAML or JSON), applies
// environment variable overrides, and validates the result. The file
// format is determined by the file extension (.yaml, .yml, or .json).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coordkit: read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("coordkit: parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("coordkit: parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("coordkit: unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	cfg.LoadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("coordkit: invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadEnv applies environment variable overrides on top of c. Environment
// variables take precedence over file-based configuration.
// Format: COORDKIT_<SECTION>_<FIELD> (e.g. COORDKIT_STORAGE_TYPE).
func (c *Config) LoadEnv() {
	if v := os.Getenv("COORDKIT_NAMESPACE_ROOT_ID"); v != "" {
		c.Namespace.RootID = v
	}

	if v := os.Getenv("COORDKIT_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("COORDKIT_REDIS_HOST"); v != "" {
		c.Storage.Redis.Host = v
	}
	if v := os.Getenv("COORDKIT_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.Redis.Port = port
		}
	}
	if v := os.Getenv("COORDKIT_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}

	if v := os.Getenv("COORDKIT_POSTGRES_HOST"); v != "" {
		c.Storage.Postgres.Host = v
	}
	if v := os.Getenv("COORDKIT_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("COORDKIT_POSTGRES_USER"); v != "" {
		c.Storage.Postgres.User = v
	}
	if v := os.Getenv("COORDKIT_POSTGRES_PASSWORD"); v != "" {
		c.Storage.Postgres.Password = v
	}
	if v := os.Getenv("COORDKIT_POSTGRES_DATABASE"); v != "" {
		c.Storage.Postgres.Database = v
	}

	if v := os.Getenv("COORDKIT_EVENTBUS_TYPE"); v != "" {
		c.EventBus.Type = v
	}

	if v := os.Getenv("COORDKIT_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COORDKIT_LOGGING_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("COORDKIT_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("COORDKIT_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
}
