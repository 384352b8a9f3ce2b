package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NETFLIX_PRICING_URL", "BATCH_SIZE", "OUTPUT_FILE", "LOG_LEVEL", "DATABASE_URL",
		"GOOGLE_SHEETS_CREDENTIALS", "SHEETS_CREDENTIALS_FILE", "SPREADSHEET_URL", "TELEGRAM_BOT_TOKEN",
		"TELEGRAM_CHAT_ID", "METRICS_ADDR", "BROWSER_BIN", "DB_HOST",
	} {
		t.Setenv(key, "")
	}
	// keep godotenv from picking up a developer .env
	t.Chdir(t.TempDir())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlText := `
scraper:
  batch_size: 3
  countries: [Canada, Japan]
  settle_delay: 1500ms
browser:
  headless: false
output:
  file: out/prices.xlsx
schedule:
  interval: 24h
telegram:
  token: from-file
  chat_id: 42
`
	if err := os.WriteFile(path, []byte(yamlText), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BATCH_SIZE", "8")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scraper.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want env override 8", cfg.Scraper.BatchSize)
	}
	if diff := cmp.Diff([]string{"Canada", "Japan"}, cfg.Scraper.Countries); diff != "" {
		t.Errorf("Countries mismatch (-want +got):\n%s", diff)
	}
	if cfg.Scraper.SettleDelay != 1500*time.Millisecond {
		t.Errorf("SettleDelay = %s", cfg.Scraper.SettleDelay)
	}
	if cfg.Scraper.NavigationTimeout != 60*time.Second {
		t.Errorf("NavigationTimeout = %s, want default kept", cfg.Scraper.NavigationTimeout)
	}
	if cfg.Browser.Headless {
		t.Error("Headless = true, want false from file")
	}
	if cfg.Output.File != "out/prices.xlsx" {
		t.Errorf("Output.File = %q", cfg.Output.File)
	}
	if cfg.Schedule.Interval != 24*time.Hour {
		t.Errorf("Interval = %s", cfg.Schedule.Interval)
	}
	if cfg.Telegram.Token != "from-file" || cfg.Telegram.ChatID != -100200 {
		t.Errorf("Telegram = %+v", cfg.Telegram)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("scraper: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Load(bad yaml) error = %v", err)
	}

	t.Setenv("BATCH_SIZE", "five")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "BATCH_SIZE") {
		t.Errorf("Load(bad BATCH_SIZE) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Scraper.URL = " " }, "scraper.url"},
		{"zero batch", func(c *Config) { c.Scraper.BatchSize = 0 }, "scraper.batch_size"},
		{"zero navigation timeout", func(c *Config) { c.Scraper.NavigationTimeout = 0 }, "scraper.navigation_timeout"},
		{"negative consent timeout", func(c *Config) { c.Scraper.ConsentTimeout = -time.Second }, "scraper.consent_timeout"},
		{"negative delay", func(c *Config) { c.Scraper.SettleDelay = -1 }, "delays"},
		{"empty output", func(c *Config) { c.Output.File = "" }, "output.file"},
		{"negative interval", func(c *Config) { c.Schedule.Interval = -time.Minute }, "schedule.interval"},
		{"token without chat", func(c *Config) { c.Telegram.Token = "t" }, "telegram.chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadLeavesInlineSheetsCredentialsToWriter(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", `{"type":"service_account"}`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sheets.Credentials != "" {
		t.Errorf("Sheets.Credentials = %q, want empty so the writer reads the variable", cfg.Sheets.Credentials)
	}

	t.Setenv("SHEETS_CREDENTIALS_FILE", "/etc/pricing/sa.json")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sheets.Credentials != "/etc/pricing/sa.json" {
		t.Errorf("Sheets.Credentials = %q", cfg.Sheets.Credentials)
	}
}

func TestDatabaseConfigured(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		dbHost string
		want   bool
	}{
		{"nothing set", "", "", false},
		{"url", "postgres://localhost/pricing", "", true},
		{"db host only", "", "db.internal", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", tt.url)
			t.Setenv("DB_HOST", tt.dbHost)

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := cfg.Database.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
			if cfg.Database.URL != tt.url {
				t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, tt.url)
			}
		})
	}
}
