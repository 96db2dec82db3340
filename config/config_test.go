package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Import.DefaultCurrency)
	assert.True(t, cfg.Import.ExcludeFX)
	assert.Equal(t, 12, cfg.Report.HistogramBins)
	assert.Equal(t, time.Monday, cfg.WeekStart())
	assert.Equal(t, time.UTC, cfg.ReportLocation())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Journal.DBPath = "" },
			wantErr: true,
			errMsg:  "journal.db_path is required",
		},
		{
			name:    "missing account",
			mutate:  func(c *Config) { c.Import.DefaultAccount = "" },
			wantErr: true,
			errMsg:  "import.default_account is required",
		},
		{
			name:    "bad currency",
			mutate:  func(c *Config) { c.Import.DefaultCurrency = "DOLLARS" },
			wantErr: true,
			errMsg:  "import.default_currency",
		},
		{
			name:    "unknown import zone",
			mutate:  func(c *Config) { c.Import.Timezone = "Mars/Olympus" },
			wantErr: true,
			errMsg:  "import.timezone",
		},
		{
			name:    "zero bins",
			mutate:  func(c *Config) { c.Report.HistogramBins = 0 },
			wantErr: true,
			errMsg:  "report.histogram_bins must be positive",
		},
		{
			name:    "bad weekday",
			mutate:  func(c *Config) { c.Report.WeekStartsOn = "someday" },
			wantErr: true,
			errMsg:  "report.week_starts_on",
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "log.format must be 'text' or 'json'",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TRADEBOOK_DB", "")
	t.Setenv("TRADEBOOK_ACCOUNT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Import.DefaultAccount = "U1234567"
			cfg.Report.WeekStartsOn = "sun"
			cfg.Report.Timezone = "America/New_York"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
			assert.Equal(t, time.Sunday, loaded.WeekStart())
			assert.Equal(t, "America/New_York", loaded.ReportLocation().String())
		})
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	t.Setenv("TRADEBOOK_DB", "")
	t.Setenv("TRADEBOOK_ACCOUNT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  db_path: /tmp/x.db\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Journal.DBPath)
	assert.Equal(t, "DEFAULT", cfg.Import.DefaultAccount)
	assert.Equal(t, 12, cfg.Report.HistogramBins)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRADEBOOK_DB", "/data/journal.db")
	t.Setenv("TRADEBOOK_ACCOUNT", "U999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, Default().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/journal.db", cfg.Journal.DBPath)
	assert.Equal(t, "U999", cfg.Import.DefaultAccount)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadInvalidFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal: [unclosed"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"", time.Monday, false},
		{"monday", time.Monday, false},
		{"Sunday", time.Sunday, false},
		{"SAT", time.Saturday, false},
		{" wed ", time.Wednesday, false},
		{"funday", time.Sunday, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			d, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}
