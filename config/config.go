package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete tradebook configuration
type Config struct {
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Import  ImportConfig  `json:"import" yaml:"import"`
	Report  ReportConfig  `json:"report" yaml:"report"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// JournalConfig locates the journal database
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ImportConfig holds defaults for rows that leave fields out
type ImportConfig struct {
	DefaultAccount  string `json:"default_account" yaml:"default_account"`
	DefaultCurrency string `json:"default_currency" yaml:"default_currency"`
	Timezone        string `json:"timezone" yaml:"timezone"` // for timestamps without an offset
	ExcludeFX       bool   `json:"exclude_fx" yaml:"exclude_fx"`
}

// ReportConfig controls dashboard and calendar bucketing
type ReportConfig struct {
	HistogramBins int    `json:"histogram_bins" yaml:"histogram_bins"`
	WeekStartsOn  string `json:"week_starts_on" yaml:"week_starts_on"` // e.g. "monday"
	Timezone      string `json:"timezone" yaml:"timezone"`
}

// LogConfig controls log format and level
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // text | json
}

// LoadFromFile loads configuration from a file (YAML or JSON), then applies
// .env and environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides values with environment variables when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TRADEBOOK_DB"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("TRADEBOOK_ACCOUNT"); v != "" {
		c.Import.DefaultAccount = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Import.DefaultAccount == "" {
		return fmt.Errorf("import.default_account is required")
	}
	if len(c.Import.DefaultCurrency) != 3 {
		return fmt.Errorf("import.default_currency must be a 3 letter code")
	}
	if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
		return fmt.Errorf("import.timezone: %w", err)
	}
	if c.Report.HistogramBins <= 0 {
		return fmt.Errorf("report.histogram_bins must be positive")
	}
	if _, err := ParseWeekday(c.Report.WeekStartsOn); err != nil {
		return fmt.Errorf("report.week_starts_on: %w", err)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone: %w", err)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn or error")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// ImportLocation is the zone for import timestamps without an offset.
// It falls back to UTC when the zone cannot be loaded.
func (c *Config) ImportLocation() *time.Location {
	return location(c.Import.Timezone)
}

// ReportLocation is the zone that decides report days.
func (c *Config) ReportLocation() *time.Location {
	return location(c.Report.Timezone)
}

// WeekStart is the first day of a reporting week, Monday unless configured.
func (c *Config) WeekStart() time.Weekday {
	d, err := ParseWeekday(c.Report.WeekStartsOn)
	if err != nil {
		return time.Monday
	}
	return d
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseWeekday accepts full or three letter day names in any case. An
// empty name is Monday.
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			DBPath: "./tradebook.db",
		},
		Import: ImportConfig{
			DefaultAccount:  "DEFAULT",
			DefaultCurrency: "USD",
			Timezone:        "UTC",
			ExcludeFX:       true,
		},
		Report: ReportConfig{
			HistogramBins: 12,
			WeekStartsOn:  "monday",
			Timezone:      "UTC",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
