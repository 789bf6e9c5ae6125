package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonandersen/tradier/pkg/tradier"
)

const (
	// AppName names the config directory.
	AppName = "trd"

	// DefaultEnvironment is used until the user configures otherwise.
	DefaultEnvironment = "sandbox"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts includes the first attempt.
	DefaultMaxAttempts = 3

	// DefaultLogLevel is used when log.level is empty.
	DefaultLogLevel = "warn"
)

// Environment variables that override the config file.
const (
	EnvAccountNumber = "TRADIER_ACCOUNT_NUMBER"
	EnvEnvironment   = "TRADIER_ENVIRONMENT"
	EnvBaseURL       = "TRADIER_BASE_URL"
	EnvLogLevel      = "TRADIER_LOG_LEVEL"
)

// Config holds the CLI configuration.
type Config struct {
	AccountID   string        `yaml:"account_id"`
	Environment string        `yaml:"environment"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	Retry       RetryConfig   `yaml:"retry"`
	Log         LogConfig     `yaml:"log"`

	// ListEncoding maps an endpoint family (account, orders, market,
	// options) to "comma" or "repeated".
	ListEncoding map[string]string `yaml:"list_encoding,omitempty"`
}

// RetryConfig configures automatic retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts     int             `yaml:"max_attempts"`
	Backoff         []time.Duration `yaml:"backoff"`
	RetryableStatus []int           `yaml:"retryable_status,omitempty"`
	NetworkErrors   *bool           `yaml:"network_errors,omitempty"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Timeout:     DefaultTimeout,
		Retry: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			Backoff:     []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second},
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: "text",
		},
	}
}

// ConfigDir returns the directory holding the config file, honouring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load reads the config at path. A missing file yields DefaultConfig; fields
// absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions, creating parent
// directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads the first .env file found in each of dirs into the
// process environment. Variables already set are not overwritten. It returns
// the files that were loaded.
func LoadDotEnv(dirs ...string) ([]string, error) {
	if len(dirs) == 0 {
		dirs = []string{".secrets", "."}
	}

	var loaded []string
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// ApplyEnv overrides config values from TRADIER_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAccountNumber)); v != "" {
		c.AccountID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnvironment)); v != "" {
		c.Environment = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// TradierEnvironment parses the configured environment.
func (c *Config) TradierEnvironment() (tradier.Environment, error) {
	return tradier.ParseEnvironment(c.Environment)
}

// RetryPolicy converts the retry section into a validated policy.
func (c *Config) RetryPolicy() (*tradier.RetryPolicy, error) {
	policy := tradier.DefaultRetryPolicy()
	if c.Retry.MaxAttempts != 0 {
		policy.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.Backoff != nil {
		policy.Backoff = c.Retry.Backoff
	}
	if len(c.Retry.RetryableStatus) > 0 {
		policy.RetryableStatus = make(map[int]bool, len(c.Retry.RetryableStatus))
		for _, code := range c.Retry.RetryableStatus {
			policy.RetryableStatus[code] = true
		}
	}
	if c.Retry.NetworkErrors != nil {
		policy.RetryOnNetworkError = *c.Retry.NetworkErrors
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// ListEncodings converts the list_encoding section.
func (c *Config) ListEncodings() (map[tradier.Family]tradier.ListEncoding, error) {
	families := map[string]tradier.Family{
		tradier.FamilyAccount.String(): tradier.FamilyAccount,
		tradier.FamilyOrders.String():  tradier.FamilyOrders,
		tradier.FamilyMarket.String():  tradier.FamilyMarket,
		tradier.FamilyOptions.String(): tradier.FamilyOptions,
	}

	out := make(map[tradier.Family]tradier.ListEncoding, len(c.ListEncoding))
	for name, value := range c.ListEncoding {
		family, ok := families[strings.ToLower(name)]
		if !ok {
			return nil, &tradier.ConfigError{Field: "list_encoding", Message: "unknown endpoint family " + name}
		}
		enc, err := tradier.ParseListEncoding(value)
		if err != nil {
			return nil, err
		}
		out[family] = enc
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Environment == "" {
		c.Environment = def.Environment
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
