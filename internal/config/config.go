// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// Config captures all configuration knobs loaded via Viper. It is built
// once at startup and passed explicitly into each component; nothing reads
// ambient global state.
type Config struct {
	Search      SearchConfig   `mapstructure:"search"`
	Target      TargetConfig   `mapstructure:"target"`
	Browser     BrowserConfig  `mapstructure:"browser"`
	Ingest      IngestConfig   `mapstructure:"ingest"`
	Throttle    ThrottleConfig `mapstructure:"throttle"`
	Diagnostics DiagConfig     `mapstructure:"diagnostics"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// SearchConfig defines the unit matrix: every term is scraped against
// every location, in the order both lists are written.
type SearchConfig struct {
	Terms      []string           `mapstructure:"terms"`
	Locations  []scraper.Location `mapstructure:"locations"`
	TimeWindow string             `mapstructure:"time_window"`
}

// TargetConfig holds the site-specific URL shape and selectors. They are
// configuration, not code, so the orchestrator stays site-agnostic.
type TargetConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	ResultsPath      string `mapstructure:"results_path"`
	ResultsSelector  string `mapstructure:"results_selector"`
	ItemSelector     string `mapstructure:"item_selector"`
	OverlaySelector  string `mapstructure:"overlay_selector"`
	NavTimeoutSec    int    `mapstructure:"nav_timeout_seconds"`
	ReadyTimeoutSec  int    `mapstructure:"ready_timeout_seconds"`
	OverlayTimeoutMs int    `mapstructure:"overlay_timeout_ms"`
	SettleDelayMs    int    `mapstructure:"settle_delay_ms"`
	StabilizeDelayMs int    `mapstructure:"stabilize_delay_ms"`
	EmptySettleMs    int    `mapstructure:"empty_settle_ms"`
}

// BrowserConfig fixes the launch identity of the headless process.
type BrowserConfig struct {
	Headless          bool     `mapstructure:"headless"`
	UserAgent         string   `mapstructure:"user_agent"`
	ViewportWidth     int      `mapstructure:"viewport_width"`
	ViewportHeight    int      `mapstructure:"viewport_height"`
	DisconnectMarkers []string `mapstructure:"disconnect_markers"`
}

// IngestConfig points at the ingestion service.
type IngestConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	BearerToken string `mapstructure:"bearer_token"`
	APIKey      string `mapstructure:"api_key"`
	TimeoutSec  int    `mapstructure:"timeout_seconds"`
}

// ThrottleConfig governs the inter-unit delay window and resource budget.
type ThrottleConfig struct {
	DelayMinMs      int `mapstructure:"delay_min_ms"`
	DelayMaxMs      int `mapstructure:"delay_max_ms"`
	MemoryCeilingMB int `mapstructure:"memory_ceiling_mb"`
}

// DiagConfig controls best-effort screenshot capture.
type DiagConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// MetricsConfig controls the optional Prometheus endpoint. An empty
// address disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	v.SetDefault("search.time_window", "r86400")
	v.SetDefault("target.base_url", "https://www.linkedin.com/jobs/search/")
	v.SetDefault("target.results_path", "/jobs/search")
	v.SetDefault("target.results_selector", "ul.jobs-search__results-list")
	v.SetDefault("target.item_selector", "ul.jobs-search__results-list > li")
	v.SetDefault("target.overlay_selector", "button.contextual-sign-in-modal__modal-dismiss")
	v.SetDefault("target.nav_timeout_seconds", 45)
	v.SetDefault("target.ready_timeout_seconds", 20)
	v.SetDefault("target.overlay_timeout_ms", 3000)
	v.SetDefault("target.settle_delay_ms", 3000)
	v.SetDefault("target.stabilize_delay_ms", 2000)
	v.SetDefault("target.empty_settle_ms", 2000)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 768)
	v.SetDefault("ingest.timeout_seconds", 15)
	v.SetDefault("throttle.delay_min_ms", 2000)
	v.SetDefault("throttle.delay_max_ms", 5000)
	v.SetDefault("throttle.memory_ceiling_mb", 1024)
	v.SetDefault("diagnostics.enabled", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url must be set")
	}
	if c.Target.ResultsSelector == "" || c.Target.ItemSelector == "" {
		return fmt.Errorf("target selectors must be set")
	}
	if c.Target.NavTimeoutSec <= 0 || c.Target.ReadyTimeoutSec <= 0 {
		return fmt.Errorf("target timeouts must be > 0")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be > 0")
	}
	if c.Ingest.Endpoint == "" {
		return fmt.Errorf("ingest.endpoint must be set")
	}
	if c.Throttle.DelayMinMs <= 0 || c.Throttle.DelayMaxMs < c.Throttle.DelayMinMs {
		return fmt.Errorf("throttle delay window [%d, %d] is invalid",
			c.Throttle.DelayMinMs, c.Throttle.DelayMaxMs)
	}
	for i, loc := range c.Search.Locations {
		if loc.Name == "" || loc.GeoID <= 0 {
			return fmt.Errorf("search.locations[%d] needs a name and a positive geo_id", i)
		}
	}
	return nil
}

// NavTimeout returns the navigation budget as a duration.
func (c TargetConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// ReadyTimeout returns the readiness-gate budget as a duration.
func (c TargetConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSec) * time.Second
}
