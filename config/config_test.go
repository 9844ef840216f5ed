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
	t.Setenv("JWT_SECRET_KEY", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, Development, cfg.Environment())
	assert.Equal(t, "localhost", cfg.ClickHouse.Host)
	assert.Equal(t, 9000, cfg.ClickHouse.NativePort)
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, "gid://mable/Product/", cfg.ProductIDPrefix)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadNestedAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CLICKHOUSE_DB_NAME=analytics\nREDIS_URL=redis://localhost:6379/1\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CLICKHOUSE_DB_NAME")
		os.Unsetenv("REDIS_URL")
	})

	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CLICKHOUSE_NATIVE_PORT", "9440")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.True(t, cfg.Environment().IsProduction())
	assert.Equal(t, 9440, cfg.ClickHouse.NativePort)
	assert.Equal(t, "analytics", cfg.ClickHouse.DBName)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	os.Unsetenv("JWT_SECRET_KEY")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment("production"))
	assert.Equal(t, Testing, ParseEnvironment("testing"))
	assert.Equal(t, Development, ParseEnvironment("staging"))
}
