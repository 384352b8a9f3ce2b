package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration
type Config struct {
	Scraper  ScraperConfig  `yaml:"scraper"`
	Browser  BrowserConfig  `yaml:"browser"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Telegram TelegramConfig `yaml:"telegram"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// ScraperConfig describes the help page and how to drive it
type ScraperConfig struct {
	URL              string   `yaml:"url"`
	CountriesExpr    string   `yaml:"countries_expr"`
	BatchSize        int      `yaml:"batch_size"`
	Countries        []string `yaml:"countries"`
	ConsentSelector  string   `yaml:"consent_selector"`
	DropdownSelector string   `yaml:"dropdown_selector"`
	InputSelector    string   `yaml:"input_selector"`
	HeadingTag       string   `yaml:"heading_tag"`
	HeadingText      string   `yaml:"heading_text"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ConsentTimeout    time.Duration `yaml:"consent_timeout"`
	SelectorTimeout   time.Duration `yaml:"selector_timeout"`
	InputTimeout      time.Duration `yaml:"input_timeout"`
	LoadDelay         time.Duration `yaml:"load_delay"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	BootstrapDelay    time.Duration `yaml:"bootstrap_delay"`
}

// BrowserConfig selects and configures the Chromium instance
type BrowserConfig struct {
	Headless    bool   `yaml:"headless"`
	Bin         string `yaml:"bin"`
	UserDataDir string `yaml:"user_data_dir"`
}

// OutputConfig names the spreadsheet file written at the end of a run
type OutputConfig struct {
	File  string `yaml:"file"`
	Sheet string `yaml:"sheet"`
	// Strict makes a failing secondary exporter (sheets, database) fail the run
	Strict bool `yaml:"strict"`
}

// LogConfig sets the logrus level and formatter
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig enables run history in PostgreSQL. An empty URL with
// Enabled set connects through the DB_* environment variables.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Configured reports whether run history should be stored
func (d DatabaseConfig) Configured() bool {
	return d.Enabled || d.URL != ""
}

// SheetsConfig enables the Google Sheets export when SpreadsheetURL is set
type SheetsConfig struct {
	SpreadsheetURL string `yaml:"spreadsheet_url"`
	// Credentials is a service account file path. When empty the writer reads
	// GOOGLE_SHEETS_CREDENTIALS, which may hold the JSON itself.
	Credentials string `yaml:"credentials"`
}

// TelegramConfig enables run notifications when Token is set
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// ScheduleConfig controls repeated runs
type ScheduleConfig struct {
	// Interval repeats the run; zero runs once
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file or environment overrides exist
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			URL:               "https://help.netflix.com/en/node/24926",
			CountriesExpr:     "window.netflix.data.article.allCountries",
			BatchSize:         5,
			ConsentSelector:   "#onetrust-accept-btn-handler",
			DropdownSelector:  "div.css-hlgwow",
			InputSelector:     "input[type=text]",
			HeadingTag:        "h3",
			HeadingText:       "Pricing",
			NavigationTimeout: 60 * time.Second,
			ConsentTimeout:    3 * time.Second,
			SelectorTimeout:   5 * time.Second,
			InputTimeout:      30 * time.Second,
			LoadDelay:         2 * time.Second,
			SettleDelay:       3 * time.Second,
			BootstrapDelay:    3 * time.Second,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Output: OutputConfig{
			File:  "netflix_pricing_by_country.xlsx",
			Sheet: "Sheet1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Scraper.URL, "NETFLIX_PRICING_URL")
	setString(&c.Output.File, "OUTPUT_FILE")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Sheets.Credentials, "SHEETS_CREDENTIALS_FILE")
	setString(&c.Sheets.SpreadsheetURL, "SPREADSHEET_URL")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Metrics.Addr, "METRICS_ADDR")
	setString(&c.Browser.Bin, "BROWSER_BIN")

	if c.Database.URL != "" || strings.TrimSpace(os.Getenv("DB_HOST")) != "" {
		c.Database.Enabled = true
	}

	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATCH_SIZE %q: %w", v, err)
		}
		c.Scraper.BatchSize = n
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Telegram.ChatID = id
	}

	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports the first setting that cannot drive a run
func (c *Config) Validate() error {
	s := c.Scraper
	if strings.TrimSpace(s.URL) == "" {
		return errors.New("scraper.url must not be empty")
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be positive, got %d", s.BatchSize)
	}

	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{"scraper.navigation_timeout", s.NavigationTimeout},
		{"scraper.consent_timeout", s.ConsentTimeout},
		{"scraper.selector_timeout", s.SelectorTimeout},
		{"scraper.input_timeout", s.InputTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", t.key, t.d)
		}
	}

	if s.LoadDelay < 0 || s.SettleDelay < 0 || s.BootstrapDelay < 0 {
		return errors.New("scraper delays must not be negative")
	}
	if strings.TrimSpace(c.Output.File) == "" {
		return errors.New("output.file must not be empty")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must not be negative, got %s", c.Schedule.Interval)
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required when a bot token is set")
	}
	return nil
}
