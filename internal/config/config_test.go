package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/odontogram-api/pkg/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  request_timeout: 10s
database:
  host: db.internal
  password: secret
catalog:
  source: static
  cache_ttl: 1m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port, "defaults fill the gaps")
	assert.Equal(t, CatalogSourceStatic, cfg.Catalog.Source)
	assert.Equal(t, time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 1024, cfg.Catalog.MaxEntries)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=secret dbname=odontogram sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
jwt:
  secret: from-file
`)
	t.Setenv("ODONTO_DB_HOST", "db.override")
	t.Setenv("ODONTO_DB_PORT", "6543")
	t.Setenv("ODONTO_JWT_SECRET", "from-env")
	t.Setenv("ODONTO_SUPABASE_URL", "https://example.supabase.co")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "https://example.supabase.co", cfg.Catalog.Supabase.URL)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "static catalog", mutate: func(c *Config) { c.Catalog.Source = CatalogSourceStatic }},
		{name: "unknown catalog source", mutate: func(c *Config) { c.Catalog.Source = "csv" }, wantErr: true},
		{name: "supabase without key", mutate: func(c *Config) {
			c.Catalog.Source = CatalogSourceSupabase
			c.Catalog.Supabase.URL = "https://example.supabase.co"
		}, wantErr: true},
		{name: "short encryption key", mutate: func(c *Config) {
			c.Catalog.Source = CatalogSourcePostgres
			c.Security.EncryptionKey = "short"
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogConfig_LoggerConfig(t *testing.T) {
	cfg := LogConfig{Level: "warn", JSON: true}.LoggerConfig()
	assert.Equal(t, logger.WarnLevel, cfg.Level)
	assert.True(t, cfg.JSON)
	assert.Nil(t, cfg.File)

	cfg = LogConfig{Level: "bogus", File: "/var/log/odontogram.log", MaxSizeMB: 50}.LoggerConfig()
	assert.Equal(t, logger.InfoLevel, cfg.Level)
	require.NotNil(t, cfg.File)
	assert.Equal(t, "/var/log/odontogram.log", cfg.File.Path)
	assert.Equal(t, 50, cfg.File.MaxSizeMB)
}
