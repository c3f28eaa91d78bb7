package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", WithEnvFile(""), WithLookupEnv(noEnv))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.API.URL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".daystore"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".daystore", "daystore.db"), cfg.DatabasePath())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "daystore.yaml", `
api:
  url: https://shop.example.com
  timeout: 5s
session:
  idle_timeout: 30m
data_dir: /var/lib/daystore
log:
  level: debug
`)
	cfg, err := Load(path, WithEnvFile(""), WithLookupEnv(noEnv))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://shop.example.com", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, "/var/lib/daystore", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoadFileFromEnv(t *testing.T) {
	path := writeFile(t, "daystore.yaml", "api:\n  url: https://env.example.com\n")
	cfg, err := Load("", WithEnvFile(""), WithLookupEnv(envMap(map[string]string{EnvConfig: path})))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.URL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), WithEnvFile(""), WithLookupEnv(noEnv))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "api: [unterminated")
	_, err := Load(path, WithEnvFile(""), WithLookupEnv(noEnv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "daystore.yaml", "api:\n  url: https://file.example.com\n")
	cfg, err := Load(path, WithEnvFile(""), WithLookupEnv(envMap(map[string]string{
		EnvAPIURL:      "http://env.example.com:9000",
		EnvSessionIdle: "2m",
		EnvHTTPTimeout: "1s",
		EnvDataDir:     "/tmp/ds",
		EnvLogLevel:    "warn",
		EnvLogFormat:   "json",
	})))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://env.example.com:9000", cfg.API.URL)
	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, time.Second, cfg.HTTPTimeout())
	assert.Equal(t, "/tmp/ds", cfg.DataDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "DAYSTORE_API_URL=http://dotenv.example.com\nDAYSTORE_SESSION_IDLE=3m\n")

	cfg, err := Load("", WithEnvFile(envFile), WithLookupEnv(noEnv))
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example.com", cfg.API.URL)
	assert.Equal(t, 3*time.Minute, cfg.IdleTimeout())

	cfg, err = Load("", WithEnvFile(envFile), WithLookupEnv(envMap(map[string]string{
		EnvAPIURL: "http://real.example.com",
	})))
	require.NoError(t, err)
	assert.Equal(t, "http://real.example.com", cfg.API.URL, "process environment beats .env")
	assert.Equal(t, 3*time.Minute, cfg.IdleTimeout())
}

func TestMissingDotEnvIsFine(t *testing.T) {
	_, err := Load("", WithEnvFile(filepath.Join(t.TempDir(), ".env")), WithLookupEnv(noEnv))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.API.URL = "" }, "api.url is required"},
		{"bad scheme", func(c *Config) { c.API.URL = "ftp://x" }, "scheme must be http or https"},
		{"no host", func(c *Config) { c.API.URL = "http://" }, "host is required"},
		{"bad timeout", func(c *Config) { c.API.Timeout = "soon" }, "api.timeout"},
		{"zero idle", func(c *Config) { c.Session.IdleTimeout = "0s" }, "must be positive"},
		{"no data dir", func(c *Config) { c.DataDir = "" }, "data_dir is required"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.API.URL = ""
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.url")
	assert.Contains(t, err.Error(), "log.format")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "x"), ExpandHome(filepath.Join("~", "x")))
	assert.Equal(t, home+"/y", ExpandHome("${HOME}/y"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/z", ExpandHome("~user/z"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := strings.TrimSpace(buf.String())
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler")
	assert.Contains(t, out, `"msg":"shown"`)
}
