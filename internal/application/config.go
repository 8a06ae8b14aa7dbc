package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Defaults applied to zero-valued configuration fields.
const (
	DefaultResultsDir    = "results"
	DefaultServerAddr    = ":8000"
	DefaultSourceTimeout = 60 * time.Second
	DefaultMaxTokens     = 1024
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
)

// Config is the root configuration of the aggregation engine.
type Config struct {
	// Sources declares every queryable source. Declaration order is the
	// order used when a request names no sources.
	Sources []SourceConfig `yaml:"sources" validate:"required,min=1,unique=ID,dive"`

	// DefaultSources, when set, replaces "all sources" for requests that
	// name none.
	DefaultSources []string `yaml:"default_sources" validate:"omitempty,dive,sourceid"`

	Collector CollectorConfig `yaml:"collector"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig describes one LLM-backed source.
type SourceConfig struct {
	// ID is the name clients use to request this source.
	ID string `yaml:"id" validate:"required,sourceid"`

	// Provider selects the backend implementation, such as "openai" or "anthropic".
	Provider string `yaml:"provider" validate:"required,providertype"`

	// Model overrides the provider's default model.
	Model string `yaml:"model" validate:"omitempty,modelname"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	Timeout     time.Duration `yaml:"timeout" validate:"min=0,max=10m"`
	MaxTokens   int           `yaml:"max_tokens" validate:"min=0,max=200000"`
	Temperature *float64      `yaml:"temperature" validate:"omitempty,min=0,max=2"`

	// System is an optional system prompt sent with every query.
	System string `yaml:"system"`

	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RateLimitConfig throttles requests to one source. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// RetryConfig controls retries of transient backend failures. Zero
// MaxRetries disables retrying.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=10"`
	BaseDelay  time.Duration `yaml:"base_delay" validate:"min=0"`
	MaxDelay   time.Duration `yaml:"max_delay" validate:"min=0"`
}

// CircuitBreakerConfig stops calling a failing source for Cooldown after
// MaxFailures consecutive failures. Zero MaxFailures disables it.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures" validate:"min=0"`
	Cooldown    time.Duration `yaml:"cooldown" validate:"min=0"`
}

// CollectorConfig bounds a fan-out. Zero values mean no deadline beyond the
// caller's context and unlimited concurrency.
type CollectorConfig struct {
	Timeout        time.Duration `yaml:"timeout" validate:"min=0"`
	MaxConcurrency int           `yaml:"max_concurrency" validate:"min=0,max=256"`
}

// StorageConfig controls persistence of aggregation results.
type StorageConfig struct {
	Disabled bool   `yaml:"disabled"`
	Dir      string `yaml:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins" validate:"omitempty,dive,required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"min=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"min=0"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// SourceIDs returns the configured source IDs in declaration order.
func (c *Config) SourceIDs() []string {
	ids := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		ids[i] = s.ID
	}
	return ids
}

func (c *Config) applyDefaults() {
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultResultsDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Timeout == 0 {
			s.Timeout = DefaultSourceTimeout
		}
		if s.MaxTokens == 0 {
			s.MaxTokens = DefaultMaxTokens
		}
		if s.RateLimit.RequestsPerSecond > 0 && s.RateLimit.Burst == 0 {
			s.RateLimit.Burst = 1
		}
		if s.Retry.MaxRetries > 0 {
			if s.Retry.BaseDelay == 0 {
				s.Retry.BaseDelay = 500 * time.Millisecond
			}
			if s.Retry.MaxDelay == 0 {
				s.Retry.MaxDelay = 10 * time.Second
			}
		}
		if s.CircuitBreaker.MaxFailures > 0 && s.CircuitBreaker.Cooldown == 0 {
			s.CircuitBreaker.Cooldown = 30 * time.Second
		}
	}
}

// ParseConfig decodes YAML strictly, applies defaults and validates the
// result. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigLoader reads configuration files. Concurrent loads of the same path
// share a single read and parse.
type ConfigLoader struct {
	sf singleflight.Group
}

// NewConfigLoader creates a ConfigLoader.
func NewConfigLoader() *ConfigLoader { return &ConfigLoader{} }

// Load reads, parses and validates the configuration file at path.
func (l *ConfigLoader) Load(path string) (*Config, error) {
	v, err, _ := l.sf.Do(path, func() (any, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		if err != nil {
			return nil, ports.NewConfigError(path, err)
		}
		cfg, err := ParseConfig(data)
		if err != nil {
			return nil, ports.NewConfigError(path, err)
		}
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

var defaultLoader = NewConfigLoader()

// LoadConfig loads the configuration file at path.
func LoadConfig(path string) (*Config, error) { return defaultLoader.Load(path) }

// validateConfig runs struct validation followed by cross-field checks and
// reports every failure at once.
func validateConfig(cfg *Config) error {
	verr := domain.NewValidationError("Config")

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("config validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.AddError(formatFieldError(fe))
		}
	}

	known := cfg.SourceIDs()
	for _, id := range cfg.DefaultSources {
		if !slices.Contains(known, id) {
			verr.AddError(fmt.Sprintf("default source %q is not a configured source", id))
		}
	}

	if verr.HasErrors() {
		return errors.Join(domain.ErrInvalidConfiguration, verr)
	}
	return nil
}
