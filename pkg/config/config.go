package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL      = "https://api.coinpaprika.com/v1"
	DefaultTickerInterval  = 5 * time.Second
	DefaultHistoryInterval = 10 * time.Second
	DefaultHistoryWindow   = 14 * 24 * time.Hour
	DefaultHTTPTimeout     = 10 * time.Second
	DefaultCacheTime       = 5 * time.Minute
	DefaultListLimit       = 100
	DefaultTickerChannel   = "coins:tickers"
)

type Config struct {
	APIBaseURL      string
	HTTPTimeout     time.Duration
	HistoryWindow   time.Duration
	TickerInterval  time.Duration
	HistoryInterval time.Duration
	StaleTime       time.Duration
	CacheTime       time.Duration
	Retries         uint64
	ListLimit       int
	Assets          []string
	RedisURL        string
	TickerChannel   string
	MetricsPort     int
}

// fileConfig is the optional YAML file passed with -config. Any field left
// empty keeps the flag/env value.
type fileConfig struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Refresh struct {
		Ticker  string `yaml:"ticker"`
		History string `yaml:"history"`
		Window  string `yaml:"window"`
	} `yaml:"refresh"`
	Assets    []string `yaml:"assets"`
	ListLimit int      `yaml:"list_limit"`
}

// Load reads .env (if present), environment variables and application flags
// (via a local FlagSet), strips out any -test.* flags, applies the optional
// YAML file and validates the result.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	var (
		baseURL     string
		configPath  string
		assets      string
		redisURL    string
		metricsPort int
	)
	fs.StringVar(&baseURL, "api", getEnvOrDefault("API_BASE_URL", DefaultAPIBaseURL), "Market data API base URL")
	fs.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Optional YAML config file")
	fs.StringVar(&assets, "assets", os.Getenv("ASSETS"), "Comma separated asset ids to watch")
	fs.StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "Optional Redis URL for ticker fan-out")
	fs.IntVar(&metricsPort, "metrics-port", 0, "Metrics server port (0 disables)")

	var appArgs []string
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			continue
		}
		appArgs = append(appArgs, arg)
	}
	if err := fs.Parse(appArgs); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPTimeout:     getDurationEnvOrDefault("HTTP_TIMEOUT", DefaultHTTPTimeout),
		HistoryWindow:   getDurationEnvOrDefault("HISTORY_WINDOW", DefaultHistoryWindow),
		TickerInterval:  getDurationEnvOrDefault("TICKER_INTERVAL", DefaultTickerInterval),
		HistoryInterval: getDurationEnvOrDefault("HISTORY_INTERVAL", DefaultHistoryInterval),
		StaleTime:       getDurationEnvOrDefault("STALE_TIME", 0),
		CacheTime:       getDurationEnvOrDefault("CACHE_TIME", DefaultCacheTime),
		ListLimit:       DefaultListLimit,
		Assets:          splitAndTrim(assets, ","),
		RedisURL:        redisURL,
		TickerChannel:   getEnvOrDefault("TICKER_CHANNEL", DefaultTickerChannel),
		MetricsPort:     metricsPort,
	}

	if portEnv := os.Getenv("METRICS_PORT"); portEnv != "" && metricsPort == 0 {
		portVal, err := strconv.Atoi(portEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid METRICS_PORT env var: %v", err)
		}
		cfg.MetricsPort = portVal
	}

	if retries := os.Getenv("FETCH_RETRIES"); retries != "" {
		if n, err := strconv.ParseUint(retries, 10, 64); err == nil {
			cfg.Retries = n
		}
	}

	if limit := os.Getenv("LIST_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.ListLimit = n
		}
	}

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile overlays values from a YAML file onto c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.API.BaseURL != "" {
		c.APIBaseURL = strings.TrimRight(fc.API.BaseURL, "/")
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fc.API.Timeout, &c.HTTPTimeout},
		{fc.Refresh.Ticker, &c.TickerInterval},
		{fc.Refresh.History, &c.HistoryInterval},
		{fc.Refresh.Window, &c.HistoryWindow},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		*d.dst = v
	}
	if len(fc.Assets) > 0 {
		c.Assets = fc.Assets
	}
	if fc.ListLimit > 0 {
		c.ListLimit = fc.ListLimit
	}
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API base URL must be an absolute http(s) URL: %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if c.TickerInterval < 0 || c.HistoryInterval < 0 {
		return fmt.Errorf("refresh intervals must not be negative")
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history window must be positive")
	}
	if c.ListLimit <= 0 {
		return fmt.Errorf("list limit must be positive")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	return nil
}

// splitAndTrim splits s on sep, trims spaces, and drops empty entries.
func splitAndTrim(s, sep string) []string {
	parts := []string{}
	for _, p := range strings.Split(s, sep) {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	return parts
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnvOrDefault returns environment variable as duration or default
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
