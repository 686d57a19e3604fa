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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
namespace:
  root_id: "test-app"

storage:
  type: "redis"
  redis:
    host: "redis.internal"
    port: 6380

event_bus:
  type: "redis"

lock:
  default_ttl: 45s
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Namespace.RootID != "test-app" {
		t.Errorf("Namespace.RootID = %s, want test-app", cfg.Namespace.RootID)
	}
	if cfg.Storage.Type != "redis" {
		t.Errorf("Storage.Type = %s, want redis", cfg.Storage.Type)
	}
	if cfg.Storage.Redis.Host != "redis.internal" {
		t.Errorf("Storage.Redis.Host = %s, want redis.internal", cfg.Storage.Redis.Host)
	}
	if cfg.Storage.Redis.Port != 6380 {
		t.Errorf("Storage.Redis.Port = %d, want 6380", cfg.Storage.Redis.Port)
	}
	if cfg.Lock.DefaultTTL != 45*time.Second {
		t.Errorf("Lock.DefaultTTL = %v, want 45s", cfg.Lock.DefaultTTL)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	jsonContent := `{
  "namespace": {"root_id": "json-app"},
  "storage": {
    "type": "postgres",
    "postgres": {"host": "pg.internal", "port": 5432, "user": "app", "database": "coordkit", "table": "coordkit"}
  }
}`

	if err := os.WriteFile(configPath, []byte(jsonContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Namespace.RootID != "json-app" {
		t.Errorf("Namespace.RootID = %s, want json-app", cfg.Namespace.RootID)
	}
	if cfg.Storage.Postgres.Host != "pg.internal" {
		t.Errorf("Storage.Postgres.Host = %s, want pg.internal", cfg.Storage.Postgres.Host)
	}
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestLoadFromFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
namespace:
  root_id: test
  invalid: [
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.txt")

	if err := os.WriteFile(configPath, []byte("test"), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected error for unsupported file extension, got nil")
	}
}

func TestLoadFromFile_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// event bus redis without storage redis fails validation
	yamlContent := `
namespace:
  root_id: "test-app"
storage:
  type: "memory"
event_bus:
  type: "redis"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected validation error for redis event bus without redis storage, got nil")
	}
}

func TestDefaultConfigPreserved(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Minimal config - most fields should use defaults
	yamlContent := `
namespace:
  root_id: "minimal-app"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Namespace.RootID != "minimal-app" {
		t.Errorf("Namespace.RootID = %s, want minimal-app", cfg.Namespace.RootID)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %s, want memory (default)", cfg.Storage.Type)
	}
	if cfg.Lock.DefaultTTL != 30*time.Second {
		t.Errorf("Lock.DefaultTTL = %v, want 30s (default)", cfg.Lock.DefaultTTL)
	}
	if cfg.RateLimit.DefaultLimit != 100 {
		t.Errorf("RateLimit.DefaultLimit = %d, want 100 (default)", cfg.RateLimit.DefaultLimit)
	}
}

func TestLoadEnv(t *testing.T) {
	testEnv := map[string]string{
		"COORDKIT_NAMESPACE_ROOT_ID": "env-app",
		"COORDKIT_STORAGE_TYPE":      "redis",
		"COORDKIT_REDIS_HOST":        "env-redis",
		"COORDKIT_REDIS_PORT":        "6390",
		"COORDKIT_REDIS_PASSWORD":    "env-secret",
		"COORDKIT_POSTGRES_HOST":     "env-pg",
		"COORDKIT_POSTGRES_PORT":     "5433",
		"COORDKIT_POSTGRES_USER":     "env-user",
		"COORDKIT_POSTGRES_PASSWORD": "env-pg-secret",
		"COORDKIT_POSTGRES_DATABASE": "env-db",
		"COORDKIT_EVENTBUS_TYPE":     "redis",
		"COORDKIT_LOGGING_LEVEL":     "debug",
		"COORDKIT_LOGGING_FORMAT":    "console",
		"COORDKIT_METRICS_ENABLED":   "true",
		"COORDKIT_METRICS_PORT":      "9999",
	}

	for k, v := range testEnv {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := DefaultConfig()
	cfg.LoadEnv()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Namespace.RootID", cfg.Namespace.RootID, "env-app"},
		{"Storage.Type", cfg.Storage.Type, "redis"},
		{"Storage.Redis.Host", cfg.Storage.Redis.Host, "env-redis"},
		{"Storage.Redis.Port", cfg.Storage.Redis.Port, 6390},
		{"Storage.Redis.Password", cfg.Storage.Redis.Password, "env-secret"},
		{"Storage.Postgres.Host", cfg.Storage.Postgres.Host, "env-pg"},
		{"Storage.Postgres.Port", cfg.Storage.Postgres.Port, 5433},
		{"Storage.Postgres.User", cfg.Storage.Postgres.User, "env-user"},
		{"Storage.Postgres.Password", cfg.Storage.Postgres.Password, "env-pg-secret"},
		{"Storage.Postgres.Database", cfg.Storage.Postgres.Database, "env-db"},
		{"EventBus.Type", cfg.EventBus.Type, "redis"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Logging.Format", cfg.Logging.Format, "console"},
		{"Metrics.Enabled", cfg.Metrics.Enabled, true},
		{"Metrics.Port", cfg.Metrics.Port, 9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadEnv_MalformedNumericIgnored(t *testing.T) {
	os.Setenv("COORDKIT_REDIS_PORT", "not-a-number")
	defer os.Unsetenv("COORDKIT_REDIS_PORT")

	cfg := DefaultConfig()
	want := cfg.Storage.Redis.Port
	cfg.LoadEnv()

	if cfg.Storage.Redis.Port != want {
		t.Errorf("Storage.Redis.Port = %d, want unchanged default %d", cfg.Storage.Redis.Port, want)
	}
}

func TestLoadFromFile_WithEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
namespace:
  root_id: "file-app"
storage:
  type: "redis"
  redis:
    host: "file-redis"
    port: 6379
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	os.Setenv("COORDKIT_REDIS_HOST", "env-override-redis")
	defer os.Unsetenv("COORDKIT_REDIS_HOST")

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Storage.Redis.Host != "env-override-redis" {
		t.Errorf("Storage.Redis.Host = %s, want env-override-redis (env should override file)", cfg.Storage.Redis.Host)
	}
	// File values should remain for non-overridden fields
	if cfg.Storage.Redis.Port != 6379 {
		t.Errorf("Storage.Redis.Port = %d, want 6379 (file value should be preserved)", cfg.Storage.Redis.Port)
	}
	if cfg.Namespace.RootID != "file-app" {
		t.Errorf("Namespace.RootID = %s, want file-app (file value should be preserved)", cfg.Namespace.RootID)
	}
}
