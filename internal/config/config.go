package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/buoy-station-tools/internal/validation"
)

// Defaults that reproduce the original station list and buoy.
const (
	DefaultBuoyID    = "45183"
	DefaultSeedDate  = "2020-06-27"
	DefaultStartDate = "2020-06-28"
)

// DefaultStations are the personal weather stations exported when none are configured.
var DefaultStations = []string{"KMIGLENA6", "KMIMAPLE4", "KMIMAPLE5", "KMILELAN9", "KMIGLENA5"}

// Config holds configuration for both binaries, loaded from YAML and env.
type Config struct {
	ServerPort     string
	RequestTimeout time.Duration

	BuoyID          string
	FeedBaseURL     string
	FeedTimeout     time.Duration
	DisplayTimezone string
	Cadence         time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RefreshRateLimitRPS   float64
	RefreshRateLimitBurst int
	AutoRefreshInterval   time.Duration // 0 disables
	DegradedWindow        time.Duration
	DegradedErrorPct      int

	ScraperBaseURL   string
	Stations         []string
	SeedDate         string
	StartDate        string
	TableIndex       int
	PageReadyTimeout time.Duration
	Headless         bool
	OutputDir        string
	StationTimezone  string

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"server"`

	Buoy struct {
		ID              string `yaml:"id"`
		FeedURL         string `yaml:"feed_url"`
		Timeout         string `yaml:"timeout"`
		DisplayTimezone string `yaml:"display_timezone"`
		Cadence         string `yaml:"cadence"`
		Retry           struct {
			MaxAttempts int    `yaml:"max_attempts"`
			BaseDelay   string `yaml:"base_delay"`
			MaxDelay    string `yaml:"max_delay"`
		} `yaml:"retry"`
		CircuitBreaker struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"buoy"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Dashboard struct {
		RefreshRateLimitRPS   float64 `yaml:"refresh_rate_limit_rps"`
		RefreshRateLimitBurst int     `yaml:"refresh_rate_limit_burst"`
		AutoRefreshInterval   string  `yaml:"auto_refresh_interval"`
		DegradedWindow        string  `yaml:"degraded_window"`
		DegradedErrorPct      int     `yaml:"degraded_error_pct"`
	} `yaml:"dashboard"`

	Scraper struct {
		BaseURL      string   `yaml:"base_url"`
		Stations     []string `yaml:"stations"`
		SeedDate     string   `yaml:"seed_date"`
		StartDate    string   `yaml:"start_date"`
		TableIndex   *int     `yaml:"table_index"`
		ReadyTimeout string   `yaml:"ready_timeout"`
		Headless     *bool    `yaml:"headless"`
		OutputDir    string   `yaml:"output_dir"`
		Timezone     string   `yaml:"timezone"`
	} `yaml:"scraper"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev). Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from path and applies env overrides and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 30*time.Second)

	cfg.BuoyID = strings.TrimSpace(os.Getenv("BUOY_ID"))
	if cfg.BuoyID == "" {
		cfg.BuoyID = strings.TrimSpace(fc.Buoy.ID)
	}
	if cfg.BuoyID == "" {
		cfg.BuoyID = DefaultBuoyID
	}
	cfg.FeedBaseURL = fc.Buoy.FeedURL
	if cfg.FeedBaseURL == "" {
		cfg.FeedBaseURL = "https://www.ndbc.noaa.gov/data/realtime2"
	}
	cfg.FeedTimeout = parseDurationOrZero(fc.Buoy.Timeout, 10*time.Second)
	cfg.DisplayTimezone = fc.Buoy.DisplayTimezone
	if cfg.DisplayTimezone == "" {
		cfg.DisplayTimezone = "America/New_York"
	}
	cfg.Cadence = parseDuration(fc.Buoy.Cadence, 30*time.Minute)

	cfg.RetryAttempts = fc.Buoy.Retry.MaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = parseDuration(fc.Buoy.Retry.BaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Buoy.Retry.MaxDelay, 2*time.Second)

	cfg.CircuitBreakerEnabled = fc.Buoy.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.Buoy.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.Buoy.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Buoy.CircuitBreaker.Timeout, 60*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RefreshRateLimitRPS = fc.Dashboard.RefreshRateLimitRPS
	if cfg.RefreshRateLimitRPS <= 0 {
		cfg.RefreshRateLimitRPS = 0.2
	}
	cfg.RefreshRateLimitBurst = fc.Dashboard.RefreshRateLimitBurst
	if cfg.RefreshRateLimitBurst <= 0 {
		cfg.RefreshRateLimitBurst = 3
	}
	cfg.AutoRefreshInterval = parseDurationOrZero(fc.Dashboard.AutoRefreshInterval, 0)
	cfg.DegradedWindow = parseDuration(fc.Dashboard.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = fc.Dashboard.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.ScraperBaseURL = fc.Scraper.BaseURL
	if cfg.ScraperBaseURL == "" {
		cfg.ScraperBaseURL = "https://www.wunderground.com/dashboard/pws"
	}
	cfg.Stations = fc.Scraper.Stations
	if len(cfg.Stations) == 0 {
		cfg.Stations = append([]string(nil), DefaultStations...)
	}
	cfg.SeedDate = strings.TrimSpace(fc.Scraper.SeedDate)
	if cfg.SeedDate == "" {
		cfg.SeedDate = DefaultSeedDate
	}
	cfg.StartDate = strings.TrimSpace(fc.Scraper.StartDate)
	if cfg.StartDate == "" {
		cfg.StartDate = DefaultStartDate
	}
	cfg.TableIndex = 3
	if fc.Scraper.TableIndex != nil {
		cfg.TableIndex = *fc.Scraper.TableIndex
	}
	cfg.PageReadyTimeout = parseDuration(fc.Scraper.ReadyTimeout, 30*time.Second)
	cfg.Headless = true
	if fc.Scraper.Headless != nil {
		cfg.Headless = *fc.Scraper.Headless
	}
	cfg.OutputDir = fc.Scraper.OutputDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	cfg.StationTimezone = fc.Scraper.Timezone
	if cfg.StationTimezone == "" {
		cfg.StationTimezone = "UTC"
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. RequestTimeout
// is raised to cover both feed downloads when it is too short.
func validate(cfg *Config) error {
	if cfg.FeedTimeout <= 0 {
		return fmt.Errorf("buoy.timeout must be positive")
	}
	if cfg.RequestTimeout <= 2*cfg.FeedTimeout {
		cfg.RequestTimeout = 2*cfg.FeedTimeout + time.Second
	}
	id, err := validation.ValidateBuoyID(cfg.BuoyID)
	if err != nil {
		return fmt.Errorf("buoy.id %q: %w", cfg.BuoyID, err)
	}
	cfg.BuoyID = id
	for _, tz := range []string{cfg.DisplayTimezone, cfg.StationTimezone} {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.AutoRefreshInterval < 0 {
		return fmt.Errorf("dashboard.auto_refresh_interval must not be negative")
	}
	if cfg.TableIndex < 0 {
		return fmt.Errorf("scraper.table_index must not be negative")
	}
	for _, d := range []string{cfg.SeedDate, cfg.StartDate} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("scraper date %q: want YYYY-MM-DD", d)
		}
	}
	return nil
}

// Location loads a configured timezone name. Names are checked by validate.
func Location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
