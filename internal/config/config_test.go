package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonandersen/tradier/pkg/tradier"
)

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Environment != DefaultEnvironment {
		t.Errorf("Environment = %q, want %q", cfg.Environment, DefaultEnvironment)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.Retry.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want %d", cfg.Retry.MaxAttempts, DefaultMaxAttempts)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `account_id: "VA000001"
environment: live
timeout: 5s
retry:
  max_attempts: 5
  backoff: [100ms, 200ms]
  retryable_status: [429, 503]
  network_errors: false
log:
  level: debug
  format: json
list_encoding:
  market: repeated
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.AccountID != "VA000001" {
		t.Errorf("AccountID = %q, want %q", cfg.AccountID, "VA000001")
	}
	if cfg.Environment != "live" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "live")
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if len(cfg.Retry.Backoff) != 2 || cfg.Retry.Backoff[1] != 200*time.Millisecond {
		t.Errorf("Retry.Backoff = %v, want [100ms 200ms]", cfg.Retry.Backoff)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.ListEncoding["market"] != "repeated" {
		t.Errorf("ListEncoding[market] = %q, want %q", cfg.ListEncoding["market"], "repeated")
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `account_id: "VA000002"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.AccountID != "VA000002" {
		t.Errorf("AccountID = %q, want %q", cfg.AccountID, "VA000002")
	}
	if cfg.Environment != DefaultEnvironment {
		t.Errorf("Environment = %q, want default %q", cfg.Environment, DefaultEnvironment)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Retry.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want default %d", cfg.Retry.MaxAttempts, DefaultMaxAttempts)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("account_id: [unclosed"), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() error = nil, want error for invalid YAML")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.AccountID = "VA000003"
	cfg.Environment = "live"

	if err := Save(configPath, cfg); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat config file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("File permissions = %o, want 0600", perm)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if loaded.AccountID != "VA000003" {
		t.Errorf("AccountID = %q, want %q", loaded.AccountID, "VA000003")
	}
	if loaded.Environment != "live" {
		t.Errorf("Environment = %q, want %q", loaded.Environment, "live")
	}
	if loaded.Timeout != cfg.Timeout {
		t.Errorf("Timeout = %v, want %v", loaded.Timeout, cfg.Timeout)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "nested", "config.yaml")

	if err := Save(configPath, DefaultConfig()); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if got, want := ConfigDir(), "/custom/config/trd"; got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigPath_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	want := filepath.Join(home, ".config", "trd", "config.yaml")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	secrets := filepath.Join(tmpDir, ".secrets")
	if err := os.MkdirAll(secrets, 0700); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	content := "TRADIER_ACCOUNT_NUMBER=VA777\nTRADIER_TEST_PRESET=from-file\n"
	if err := os.WriteFile(filepath.Join(secrets, ".env"), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	t.Setenv("TRADIER_ACCOUNT_NUMBER", "")
	os.Unsetenv("TRADIER_ACCOUNT_NUMBER")
	t.Setenv("TRADIER_TEST_PRESET", "from-env")

	loaded, err := LoadDotEnv(secrets, filepath.Join(tmpDir, "missing"))
	if err != nil {
		t.Fatalf("LoadDotEnv() error = %v, want nil", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d files, want 1", len(loaded))
	}
	if got := os.Getenv("TRADIER_ACCOUNT_NUMBER"); got != "VA777" {
		t.Errorf("TRADIER_ACCOUNT_NUMBER = %q, want %q", got, "VA777")
	}
	if got := os.Getenv("TRADIER_TEST_PRESET"); got != "from-env" {
		t.Errorf("TRADIER_TEST_PRESET = %q, want existing value kept", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAccountNumber, "VA888")
	t.Setenv(EnvEnvironment, "live")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLogLevel, "debug")

	cfg := DefaultConfig()
	cfg.AccountID = "VA000001"
	cfg.BaseURL = "http://localhost:8080"
	cfg.ApplyEnv()

	if cfg.AccountID != "VA888" {
		t.Errorf("AccountID = %q, want %q", cfg.AccountID, "VA888")
	}
	if cfg.Environment != "live" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "live")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, empty env var must not override", cfg.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestTradierEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	env, err := cfg.TradierEnvironment()
	if err != nil || env != tradier.Sandbox {
		t.Errorf("TradierEnvironment() = %v, %v; want sandbox", env, err)
	}

	cfg.Environment = "staging"
	if _, err := cfg.TradierEnvironment(); tradier.KindOf(err) != tradier.KindConfiguration {
		t.Errorf("TradierEnvironment() error kind = %v, want configuration", tradier.KindOf(err))
	}
}

func TestRetryPolicy(t *testing.T) {
	off := false
	cfg := DefaultConfig()
	cfg.Retry = RetryConfig{
		MaxAttempts:     4,
		Backoff:         []time.Duration{time.Millisecond},
		RetryableStatus: []int{503},
		NetworkErrors:   &off,
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		t.Fatalf("RetryPolicy() error = %v, want nil", err)
	}
	if policy.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", policy.MaxAttempts)
	}
	if policy.RetryOnNetworkError {
		t.Error("RetryOnNetworkError = true, want false")
	}
	if !policy.ShouldRetryStatus(503) || policy.ShouldRetryStatus(429) {
		t.Errorf("RetryableStatus = %v, want only 503", policy.RetryableStatus)
	}

	cfg.Retry.MaxAttempts = -1
	if _, err := cfg.RetryPolicy(); tradier.KindOf(err) != tradier.KindConfiguration {
		t.Errorf("RetryPolicy() error kind = %v, want configuration", tradier.KindOf(err))
	}
}

func TestListEncodings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListEncoding = map[string]string{"Market": "repeated", "orders": "comma"}

	encs, err := cfg.ListEncodings()
	if err != nil {
		t.Fatalf("ListEncodings() error = %v, want nil", err)
	}
	if encs[tradier.FamilyMarket] != tradier.RepeatedKey {
		t.Errorf("market encoding = %v, want repeated", encs[tradier.FamilyMarket])
	}
	if encs[tradier.FamilyOrders] != tradier.CommaJoined {
		t.Errorf("orders encoding = %v, want comma", encs[tradier.FamilyOrders])
	}

	cfg.ListEncoding = map[string]string{"futures": "comma"}
	if _, err := cfg.ListEncodings(); err == nil {
		t.Error("ListEncodings() error = nil, want error for unknown family")
	}
}
