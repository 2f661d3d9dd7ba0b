// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Search    SearchConfig    `mapstructure:"search"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Cursor    CursorConfig    `mapstructure:"cursor"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// TestKeyword is scraped by GET /test.
	TestKeyword string `mapstructure:"test_keyword"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// BrowserConfig controls how Chrome is launched and driven.
type BrowserConfig struct {
	ExecPath              string        `mapstructure:"exec_path"`
	ProfileDir            string        `mapstructure:"profile_dir"`
	Headless              bool          `mapstructure:"headless"`
	NoSandbox             bool          `mapstructure:"no_sandbox"`
	WindowWidth           int           `mapstructure:"window_width"`
	WindowHeight          int           `mapstructure:"window_height"`
	WindowPosition        string        `mapstructure:"window_position"`
	UserAgent             string        `mapstructure:"user_agent"`
	NavigationTimeout     time.Duration `mapstructure:"navigation_timeout"`
	MinNavigationInterval time.Duration `mapstructure:"min_navigation_interval"`
	ScreenshotPath        string        `mapstructure:"screenshot_path"`
}

// SearchConfig describes the results page.
type SearchConfig struct {
	URL         string        `mapstructure:"url"`
	Origin      string        `mapstructure:"origin"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// ChallengeConfig tunes the anti-bot interstitial wait.
type ChallengeConfig struct {
	Signatures []string      `mapstructure:"signatures"`
	Grace      time.Duration `mapstructure:"grace"`
}

// ScanConfig bounds and paces multi-keyword scans.
type ScanConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	MinDelay     time.Duration `mapstructure:"min_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// CursorConfig selects where the rotation cursor is persisted.
type CursorConfig struct {
	Backend  string               `mapstructure:"backend"`
	File     FileCursorConfig     `mapstructure:"file"`
	Postgres PostgresCursorConfig `mapstructure:"postgres"`
	GCS      GCSCursorConfig      `mapstructure:"gcs"`
	Redis    RedisCursorConfig    `mapstructure:"redis"`
}

// FileCursorConfig configures the JSON state file.
type FileCursorConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresCursorConfig configures the Postgres cursor table.
type PostgresCursorConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	Key          string `mapstructure:"key"`
	MaxConns     int32  `mapstructure:"max_conns"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
}

// GCSCursorConfig configures the GCS cursor object.
type GCSCursorConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// RedisCursorConfig configures the Redis cursor key.
type RedisCursorConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// ScheduleConfig enables recurring rotating scans.
type ScheduleConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Spec       string   `mapstructure:"spec"`
	Keywords   []string `mapstructure:"keywords"`
	Limit      int      `mapstructure:"limit"`
	RunOnStart bool     `mapstructure:"run_on_start"`
}

// Cursor backends accepted by cursor.backend.
const (
	CursorFile     = "file"
	CursorMemory   = "memory"
	CursorPostgres = "postgres"
	CursorGCS      = "gcs"
	CursorRedis    = "redis"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is honoured for platforms that inject it.
	if err := v.BindEnv("server.port", "SCRAPER_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.test_keyword", "n8n")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("browser.profile_dir", "chrome-profile")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.window_position", "-3000,-3000")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.min_navigation_interval", "0s")
	v.SetDefault("browser.screenshot_path", "last_scrape.png")
	v.SetDefault("search.url", "https://www.upwork.com/nx/search/jobs/")
	v.SetDefault("search.origin", "https://www.upwork.com")
	v.SetDefault("search.settle_delay", "5s")
	v.SetDefault("challenge.signatures", []string{"Just a moment", "Cloudflare"})
	v.SetDefault("challenge.grace", "10s")
	v.SetDefault("scan.default_limit", 100)
	v.SetDefault("scan.min_delay", "3s")
	v.SetDefault("scan.max_delay", "6s")
	v.SetDefault("cursor.backend", CursorFile)
	v.SetDefault("cursor.file.path", "keyword_state.json")
	v.SetDefault("cursor.postgres.table", "keyword_state")
	v.SetDefault("cursor.postgres.key", "default")
	v.SetDefault("cursor.postgres.ensure_schema", true)
	v.SetDefault("cursor.gcs.object", "keyword_state.json")
	v.SetDefault("cursor.redis.key", "scraper:keyword_state")
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.spec", "@every 1h")
	v.SetDefault("schedule.limit", 100)
	v.SetDefault("schedule.run_on_start", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Server.TestKeyword) == "" {
		return fmt.Errorf("server.test_keyword must not be empty")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Browser.MinNavigationInterval < 0 {
		return fmt.Errorf("browser.min_navigation_interval must be >= 0")
	}
	if c.Search.URL == "" {
		return fmt.Errorf("search.url must be set")
	}
	if c.Challenge.Grace <= 0 {
		return fmt.Errorf("challenge.grace must be > 0")
	}
	if c.Scan.DefaultLimit <= 0 {
		return fmt.Errorf("scan.default_limit must be > 0")
	}
	if c.Scan.MinDelay < 0 || c.Scan.MaxDelay < c.Scan.MinDelay {
		return fmt.Errorf("scan.max_delay must be >= scan.min_delay >= 0")
	}
	switch c.Cursor.Backend {
	case CursorFile:
		if c.Cursor.File.Path == "" {
			return fmt.Errorf("cursor.file.path must be set for the file backend")
		}
	case CursorMemory:
	case CursorPostgres:
		if c.Cursor.Postgres.DSN == "" {
			return fmt.Errorf("cursor.postgres.dsn must be set for the postgres backend")
		}
	case CursorGCS:
		if c.Cursor.GCS.Bucket == "" {
			return fmt.Errorf("cursor.gcs.bucket must be set for the gcs backend")
		}
	case CursorRedis:
		if c.Cursor.Redis.URL == "" {
			return fmt.Errorf("cursor.redis.url must be set for the redis backend")
		}
	default:
		return fmt.Errorf("cursor.backend %q is not one of file, memory, postgres, gcs, redis", c.Cursor.Backend)
	}
	if c.Schedule.Enabled && len(c.Schedule.Keywords) == 0 {
		return fmt.Errorf("schedule.keywords must be set when schedule is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
