package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "cookie", cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionDuration)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_DURATION", "2h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, 2*time.Hour, cfg.SessionDuration)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_driver: pgx\ndatabase_url: postgres://localhost/catalog\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/catalog", cfg.DatabaseURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad driver", func(c *Config) { c.DatabaseDriver = "mysql" }, true},
		{"bad session backend", func(c *Config) { c.SessionBackend = "memcached" }, true},
		{"zero duration", func(c *Config) { c.SessionDuration = 0 }, true},
		{"default secret in production", func(c *Config) { c.Environment = "production" }, true},
		{"custom secret in production", func(c *Config) {
			c.Environment = "production"
			c.SecretKey = "s3cret"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Environment:     "development",
				DatabaseDriver:  "sqlite3",
				SessionBackend:  "cookie",
				SessionDuration: time.Hour,
				SecretKey:       defaultSecretKey,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
