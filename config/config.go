// Package config loads the library CLI settings from YAML, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its config file.
const DefaultPath = "library.yaml"

// Config holds all library settings.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Borrowing BorrowingConfig `yaml:"borrowing"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates the device key-value store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig optionally replaces the bundled catalog with a JSON file.
type CatalogConfig struct {
	Path string `yaml:"path"` // empty = bundled dataset
}

// BorrowingConfig configures loans.
type BorrowingConfig struct {
	LoanDays int `yaml:"loan_days"`
}

// SecurityConfig configures account passwords.
type SecurityConfig struct {
	MinPasswordLength int `yaml:"min_password_length"`
	BcryptCost        int `yaml:"bcrypt_cost"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage:   StorageConfig{Path: "library.db"},
		Borrowing: BorrowingConfig{LoanDays: 14},
		Security: SecurityConfig{
			MinPasswordLength: 6,
			BcryptCost:        10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies LIBRARY_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("LIBRARY_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LIBRARY_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIBRARY_LOAN_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LIBRARY_LOAN_DAYS %q: %w", v, err)
		}
		c.Borrowing.LoanDays = days
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if c.Borrowing.LoanDays < 1 {
		errs = append(errs, fmt.Errorf("borrowing.loan_days must be at least 1, got %d", c.Borrowing.LoanDays))
	}
	if c.Security.MinPasswordLength < 1 {
		errs = append(errs, fmt.Errorf("security.min_password_length must be at least 1, got %d", c.Security.MinPasswordLength))
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost must be between 4 and 31, got %d", c.Security.BcryptCost))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Logger builds a zap logger for these settings. verbose forces debug level.
func (c LoggingConfig) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = !verbose
	return zc.Build()
}
