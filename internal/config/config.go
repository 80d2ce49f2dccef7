package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"AssetKeeper/internal/asset"
	"AssetKeeper/internal/collector"
	"AssetKeeper/internal/model"
	"AssetKeeper/internal/tabular"
)

// AssetSpec describes one configured asset and how to load it.
type AssetSpec struct {
	Name     string `yaml:"name"`
	Ticker   string `yaml:"ticker"`
	Backend  string `yaml:"backend"`
	File     string `yaml:"file"`
	Sep      string `yaml:"separator"`
	Comment  string `yaml:"comment"`
	SkipRows int    `yaml:"skip_rows"`
	NoHeader bool   `yaml:"no_header"`
	Sheet    string `yaml:"sheet"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Interval string `yaml:"interval"`
}

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string        `yaml:"provider"`
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Assets   []AssetSpec `yaml:"assets"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" && cfg.DataSource.APIKey == "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}

	// Defaults
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 22 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, a := range c.Assets {
		if a.Name == "" {
			return fmt.Errorf("assets[%d].name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("assets[%d]: duplicate name %q", i, a.Name)
		}
		seen[a.Name] = true
		if _, err := a.Request(); err != nil {
			return fmt.Errorf("assets[%d] (%s): %w", i, a.Name, err)
		}
	}
	if c.DataSource.Timeout < 0 {
		return fmt.Errorf("data_source.timeout must not be negative")
	}
	return nil
}

// FetcherSettings returns the remote provider settings.
func (c *Config) FetcherSettings() collector.Settings {
	return collector.Settings{
		Provider: c.DataSource.Provider,
		BaseURL:  c.DataSource.BaseURL,
		APIKey:   c.DataSource.APIKey,
		Proxy:    c.Proxy,
		Timeout:  c.DataSource.Timeout,
	}
}

// Request converts the entry into a retrieval request. Only the shape of
// the entry is checked here; missing tickers and file paths are reported
// by the asset at retrieval time.
func (a AssetSpec) Request() (asset.Request, error) {
	backend, err := asset.ParseBackend(a.Backend)
	if err != nil {
		return asset.Request{}, err
	}
	req := asset.Request{
		Backend:  backend,
		FilePath: a.File,
		Interval: model.Interval(a.Interval),
		Options: tabular.Options{
			SkipRows: a.SkipRows,
			NoHeader: a.NoHeader,
			Sheet:    a.Sheet,
		},
	}
	if req.Options.Separator, err = singleRune("separator", a.Sep); err != nil {
		return asset.Request{}, err
	}
	if req.Options.Comment, err = singleRune("comment", a.Comment); err != nil {
		return asset.Request{}, err
	}
	if req.Start, err = parseDate("start", a.Start); err != nil {
		return asset.Request{}, err
	}
	if req.End, err = parseDate("end", a.End); err != nil {
		return asset.Request{}, err
	}
	switch req.Interval {
	case "", model.Daily, model.Weekly, model.Monthly:
	default:
		return asset.Request{}, fmt.Errorf("interval %q must be 1d, 1wk or 1mo", a.Interval)
	}
	return req, nil
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD: %w", field, err)
	}
	return t, nil
}

// singleRune accepts one character; "\t" and "tab" name the tab character.
func singleRune(field, v string) (rune, error) {
	switch v {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", field, v)
	}
	r, _ := utf8.DecodeRuneInString(v)
	return r, nil
}
