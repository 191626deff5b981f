// Package config loads and validates the toursync YAML configuration.
//
// Values are read from the YAML file first, then overridden by environment
// variables (TOURSYNC_*). A .env file next to the config file, if present, is
// loaded into the environment before the overrides are applied; variables
// already set in the process environment win over the .env file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPollInterval   = 30 * time.Second
	minPollInterval       = 10 * time.Second
	maxPollInterval       = 5 * time.Minute
	defaultRequestTimeout = 15 * time.Second
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// APIURL is the base URL of the tour-booking API (e.g. "http://localhost:8080").
	APIURL string `yaml:"api_url" env:"TOURSYNC_API_URL"`

	// Token is the bearer token returned by login. Empty means signed out:
	// only the public tour list is synchronized.
	Token string `yaml:"token,omitempty" env:"TOURSYNC_TOKEN"`

	// Email is the account the token was issued for. Informational.
	Email string `yaml:"email,omitempty" env:"TOURSYNC_EMAIL"`

	// PollInterval controls how often the caches are refreshed.
	// Minimum 10s, maximum 5m. Defaults to 30s if unset.
	PollInterval time.Duration `yaml:"poll_interval" env:"TOURSYNC_POLL_INTERVAL"`

	// RequestTimeout bounds a single HTTP request. Defaults to 15s.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty" env:"TOURSYNC_REQUEST_TIMEOUT"`

	// RequestsPerSecond caps the client's request rate. 0 disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" env:"TOURSYNC_REQUESTS_PER_SECOND"`

	// CachePath is the SQLite snapshot file. Defaults to
	// ~/.local/share/toursync/cache.db.
	CachePath string `yaml:"cache_path,omitempty" env:"TOURSYNC_CACHE_PATH"`

	// LogFile, when set, sends logs to a size-rotated file instead of stderr.
	LogFile string `yaml:"log_file,omitempty" env:"TOURSYNC_LOG_FILE"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "toursync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request, e.g. Authorization: "Bearer <token>".
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/toursync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "toursync", "config.yaml"), nil
}

// Load reads the configuration file at path, applies environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// Write saves the configuration as YAML at path with owner-only permissions,
// creating the parent directory if needed.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// validate checks that all required fields are present and well-formed, and
// fills in defaults.
func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api_url %q must be a valid http or https URL", c.APIURL)
	}

	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll_interval %v is too short (minimum 10s)", c.PollInterval)
	}
	if c.PollInterval > maxPollInterval {
		return fmt.Errorf("poll_interval %v is too long (maximum 5m)", c.PollInterval)
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout %v must be positive", c.RequestTimeout)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second %v must not be negative", c.RequestsPerSecond)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
