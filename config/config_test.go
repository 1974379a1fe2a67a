package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Swind/go-threadobject/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := config.LoadFrom(writeEnvFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.StartTimeout)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, "threadobject", cfg.MetricsNamespace)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestLoadFrom_FileValues(t *testing.T) {
	path := writeEnvFile(t, `
THREADOBJECT_LOG_LEVEL=debug
THREADOBJECT_LOG_FORMAT=console
THREADOBJECT_THREAD_START_TIMEOUT=250ms
THREADOBJECT_HISTORY_CAPACITY=16
THREADOBJECT_METRICS_ADDR=":9090"
`)

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 250*time.Millisecond, cfg.StartTimeout)
	assert.Equal(t, 16, cfg.HistoryCapacity)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoadFrom_Precedence(t *testing.T) {
	first := writeEnvFile(t, "THREADOBJECT_HISTORY_CAPACITY=1\nTHREADOBJECT_METRICS_NAMESPACE=first\n")
	second := writeEnvFile(t, "THREADOBJECT_HISTORY_CAPACITY=2\nTHREADOBJECT_LOG_LEVEL=warn\n")
	t.Setenv("THREADOBJECT_METRICS_NAMESPACE", "from_env")

	cfg, err := config.LoadFrom(first, second)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.HistoryCapacity, "earlier file wins")
	assert.Equal(t, "warn", cfg.LogLevel, "later file fills gaps")
	assert.Equal(t, "from_env", cfg.MetricsNamespace, "process environment wins")

	_, leaked := os.LookupEnv("THREADOBJECT_LOG_LEVEL")
	assert.False(t, leaked, "file values must not be exported")
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoadFrom_ParseError(t *testing.T) {
	t.Setenv("THREADOBJECT_HISTORY_CAPACITY", "lots")
	_, err := config.LoadFrom()
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("THREADOBJECT_LOG_LEVEL", "error")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.NotPanics(t, func() { config.MustLoad() })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *config.Config) { c.LogFormat = "xml" }},
		{"negative timeout", func(c *config.Config) { c.StartTimeout = -time.Second }},
		{"negative history", func(c *config.Config) { c.HistoryCapacity = -1 }},
		{"zero poll", func(c *config.Config) { c.PollInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadFrom()
			require.NoError(t, err)
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("THREADOBJECT_LOG_FORMAT", "xml")
	assert.Panics(t, func() { config.MustLoad() })
}

func TestNewLogger(t *testing.T) {
	cfg, err := config.LoadFrom()
	require.NoError(t, err)
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info().Log("hidden")
	logger.Warning().Str("k", "v").Log("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)
}
