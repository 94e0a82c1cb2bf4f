package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // .env 가 없는 디렉터리

	cfg := Load()
	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Canvas.Retention)
	assert.Equal(t, 5*1024*1024, cfg.Canvas.MaxBytes)
	assert.Equal(t, 3*1024*1024, cfg.Canvas.TargetBytes)
	assert.Equal(t, time.Hour, cfg.Canvas.CleanupInterval)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "data/drawings.json", cfg.Store.DataFile)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CANVAS_RETENTION", "48h")
	t.Setenv("CANVAS_MAX_BYTES", "2MB")
	t.Setenv("CANVAS_TARGET_BYTES", "512KB")
	t.Setenv("CANVAS_CLEANUP_INTERVAL", "90")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PRESENCE", "yes")

	cfg := Load()
	assert.Equal(t, 48*time.Hour, cfg.Canvas.Retention)
	assert.Equal(t, 2*1024*1024, cfg.Canvas.MaxBytes)
	assert.Equal(t, 512*1024, cfg.Canvas.TargetBytes)
	assert.Equal(t, 90*time.Second, cfg.Canvas.CleanupInterval)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.True(t, cfg.Redis.Presence)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string]func(c *Config){
		"target above max":    func(c *Config) { c.Canvas.TargetBytes = c.Canvas.MaxBytes + 1 },
		"zero retention":      func(c *Config) { c.Canvas.Retention = 0 },
		"zero interval":       func(c *Config) { c.Canvas.CleanupInterval = 0 },
		"unknown backend":     func(c *Config) { c.Store.Backend = "s3" },
		"redis without addr":  func(c *Config) { c.Store.Backend = BackendRedis; c.Redis.Addr = "" },
		"presence no addr":    func(c *Config) { c.Redis.Presence = true; c.Redis.Addr = "" },
		"file without a path": func(c *Config) { c.Store.DataFile = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetBytes(t *testing.T) {
	cases := []struct {
		value string
		want  int
	}{
		{"", 7},
		{"1024", 1024},
		{"3MB", 3 * 1024 * 1024},
		{"3mb", 3 * 1024 * 1024},
		{"16KB", 16 * 1024},
		{"100B", 100},
		{"lots", 7},
		{"-5", 7},
	}
	for _, c := range cases {
		t.Setenv("TEST_BYTES", c.value)
		assert.Equal(t, c.want, getBytes("TEST_BYTES", 7), "value %q", c.value)
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "15")
	assert.Equal(t, 15*time.Second, getDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, getDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getDuration("TEST_DURATION", time.Minute))
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "canvas", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=canvas sslmode=disable TimeZone=UTC", c.DSN())
}
