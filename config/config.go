// Package config loads DayStore client configuration.
//
// Values are resolved in this order, later sources winning:
//   - built-in defaults
//   - the YAML file named by --config or DAYSTORE_CONFIG
//   - variables from a .env file in the working directory
//   - DAYSTORE_* environment variables
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig      = "DAYSTORE_CONFIG"
	EnvAPIURL      = "DAYSTORE_API_URL"
	EnvDataDir     = "DAYSTORE_DATA_DIR"
	EnvSessionIdle = "DAYSTORE_SESSION_IDLE"
	EnvHTTPTimeout = "DAYSTORE_HTTP_TIMEOUT"
	EnvLogLevel    = "DAYSTORE_LOG_LEVEL"
	EnvLogFormat   = "DAYSTORE_LOG_FORMAT"
)

// DefaultEnvFile is the dotenv file Load reads when present.
const DefaultEnvFile = ".env"

// Config is the client configuration.
type Config struct {
	// API configures the storefront endpoint.
	API APIConfig `yaml:"api"`

	// Session configures the local session store.
	Session SessionConfig `yaml:"session"`

	// DataDir holds the local database. "~" and ${HOME} are expanded.
	DataDir string `yaml:"data_dir"`

	// Log configures diagnostic output on stderr.
	Log LogConfig `yaml:"log"`
}

// APIConfig configures the storefront endpoint.
type APIConfig struct {
	// URL is the base URL; endpoints live under /api/v1.
	// Default: http://localhost:8000
	URL string `yaml:"url"`

	// Timeout bounds each HTTP request.
	// Default: 15s
	Timeout string `yaml:"timeout"`
}

// SessionConfig configures the local session store.
type SessionConfig struct {
	// IdleTimeout is the sliding expiry window.
	// Default: 10m
	IdleTimeout string `yaml:"idle_timeout"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://localhost:8000",
			Timeout: "15s",
		},
		Session: SessionConfig{
			IdleTimeout: "10m",
		},
		DataDir: filepath.Join("~", ".daystore"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

type loadOptions struct {
	envFile string
	lookup  func(string) (string, bool)
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithEnvFile reads dotenv variables from path instead of ./.env. An empty
// path disables dotenv loading.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) {
		o.lookup = fn
	}
}

// Load builds the configuration. path may be empty, in which case
// DAYSTORE_CONFIG is consulted; if that is unset too, no file is read.
// A named file that does not exist is an error.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFile: DefaultEnvFile, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	dotenv, err := readEnvFile(o.envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := o.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()
	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(lookup)
	cfg.DataDir = ExpandHome(cfg.DataDir)
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vars, nil
}

// loadFile merges a YAML file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvAPIURL, &c.API.URL)
	set(EnvHTTPTimeout, &c.API.Timeout)
	set(EnvSessionIdle, &c.Session.IdleTimeout)
	set(EnvDataDir, &c.DataDir)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
}

// ExpandHome expands a leading "~" and ${HOME} in path.
func ExpandHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	path = strings.ReplaceAll(path, "${HOME}", home)
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~"+string(filepath.Separator)); ok {
		return filepath.Join(home, rest)
	}
	return path
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.URL)
	switch {
	case c.API.URL == "":
		errs = append(errs, fmt.Errorf("api.url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("api.url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("api.url: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("api.url: host is required"))
	}

	if _, err := positiveDuration(c.API.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("api.timeout: %w", err))
	}
	if _, err := positiveDuration(c.Session.IdleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("session.idle_timeout: %w", err))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// HTTPTimeout returns the parsed API timeout. Call Validate first; an
// invalid value yields zero.
func (c *Config) HTTPTimeout() time.Duration {
	d, _ := positiveDuration(c.API.Timeout)
	return d
}

// IdleTimeout returns the parsed session idle window. Call Validate first;
// an invalid value yields zero.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := positiveDuration(c.Session.IdleTimeout)
	return d
}

// DatabasePath is the BBolt file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "daystore.db")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return level, nil
}

// NewLogger builds the logger described by c.Log, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
