// Package config loads vacstat settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zalepa/vacstat/currency"
)

const (
	// DefaultPath is read when no path is given and the file exists.
	DefaultPath = "vacstat.yaml"

	// EnvConfig names the config file when no -config flag is given.
	EnvConfig = "VACSTAT_CONFIG"
	// EnvLogLevel overrides log.level.
	EnvLogLevel = "VACSTAT_LOG_LEVEL"
	// EnvBaseCurrency overrides base_currency.
	EnvBaseCurrency = "VACSTAT_BASE_CURRENCY"
)

// Config holds every vacstat setting.
type Config struct {
	BaseCurrency string           `yaml:"base_currency"`
	Workers      int              `yaml:"workers"`
	Rates        RatesConfig      `yaml:"rates"`
	Partitions   PartitionsConfig `yaml:"partitions"`
	Output       OutputConfig     `yaml:"output"`
	Log          LogConfig        `yaml:"log"`
}

// RatesConfig configures the exchange rate table, its download and the
// conversion policies.
type RatesConfig struct {
	File              string  `yaml:"file"`
	URL               string  `yaml:"url"`
	MinCount          int     `yaml:"min_count"`
	Missing           string  `yaml:"missing"`
	SingleBound       string  `yaml:"single_bound"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Retries           uint64  `yaml:"retries"`
}

// PartitionsConfig controls the per-year files.
type PartitionsConfig struct {
	// Dir keeps the per-year files. Empty means a temporary directory.
	Dir  string `yaml:"dir"`
	Sort bool   `yaml:"sort"`
}

// OutputConfig names the default report files.
type OutputConfig struct {
	XLSX string `yaml:"xlsx"`
	PNG  string `yaml:"png"`
	PDF  string `yaml:"pdf"`
}

// LogConfig sets the log level and the optional rotated JSON log file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		BaseCurrency: currency.DefaultBase,
		Rates: RatesConfig{
			File:              "rates.csv",
			URL:               currency.DefaultDailyURL,
			MinCount:          5000,
			Missing:           string(currency.ExcludeMissing),
			SingleBound:       string(currency.HalveSingle),
			RequestsPerSecond: 5,
			Retries:           3,
		},
		Partitions: PartitionsConfig{Sort: true},
		Output: OutputConfig{
			XLSX: "report.xlsx",
			PNG:  "graph.png",
			PDF:  "report.pdf",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first; then the YAML file at path, $VACSTAT_CONFIG or DefaultPath
// is applied over the defaults; then environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		if path = os.Getenv(EnvConfig); path != "" {
			explicit = true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvBaseCurrency); v != "" {
		cfg.BaseCurrency = strings.ToUpper(strings.TrimSpace(v))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.BaseCurrency == "" {
		return fmt.Errorf("base_currency is required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if _, err := currency.ParsePolicy(c.Rates.Missing); err != nil {
		return fmt.Errorf("rates.missing: %w", err)
	}
	if _, err := currency.ParseSingleBound(c.Rates.SingleBound); err != nil {
		return fmt.Errorf("rates.single_bound: %w", err)
	}
	if c.Rates.MinCount < 0 {
		return fmt.Errorf("rates.min_count must not be negative")
	}
	if c.Rates.RequestsPerSecond <= 0 {
		return fmt.Errorf("rates.requests_per_second must be greater than 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Policy returns the parsed missing-rate policy.
func (c Config) Policy() currency.MissingRatePolicy {
	p, _ := currency.ParsePolicy(c.Rates.Missing)
	return p
}

// SingleBound returns the parsed single-bound policy.
func (c Config) SingleBound() currency.SingleBoundPolicy {
	p, _ := currency.ParseSingleBound(c.Rates.SingleBound)
	return p
}
