package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Config stores all configuration for the application.
type Config struct {
	Queries        string  `mapstructure:"QUERIES"`
	ExactMatch     bool    `mapstructure:"EXACT_MATCH"`
	MaxRequests    int     `mapstructure:"MAX_REQUESTS"`
	CrawlWorkers   int     `mapstructure:"CRAWL_WORKERS"`
	CrawlTimeout   int     `mapstructure:"CRAWL_TIMEOUT"`
	MaxRetries     int     `mapstructure:"MAX_RETRIES"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	BaseURL        string  `mapstructure:"BASE_URL"`
	SearchPath     string  `mapstructure:"SEARCH_PATH"`
	FetchMode      string  `mapstructure:"FETCH_MODE"`
	UserAgents     string  `mapstructure:"USER_AGENTS"`
	Proxies        string  `mapstructure:"PROXIES"`
	PersistListing bool    `mapstructure:"PERSIST_LISTINGS"`

	OutputPath    string `mapstructure:"OUTPUT_PATH"`
	CSVExportPath string `mapstructure:"CSV_EXPORT_PATH"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	DedupTTLHours int    `mapstructure:"DEDUP_TTL_HOURS"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFile    string `mapstructure:"LOG_FILE"`
}

// Load reads configuration from .env or environment variables.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads configuration from the given env file, if it exists, with
// environment variables taking precedence.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing file is fine: production is configured purely through the
	// environment.
	_ = v.ReadInConfig()

	v.SetDefault("QUERIES", "")
	v.SetDefault("EXACT_MATCH", false)
	v.SetDefault("MAX_REQUESTS", 0)
	v.SetDefault("CRAWL_WORKERS", 10)
	v.SetDefault("CRAWL_TIMEOUT", 30) // seconds
	v.SetDefault("MAX_RETRIES", 2)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("BASE_URL", "https://business.egov.mv")
	v.SetDefault("SEARCH_PATH", "/BusinessRegistry/SearchBusinessRegistry")
	v.SetDefault("FETCH_MODE", FetchModeHTTP)
	v.SetDefault("USER_AGENTS", "")
	v.SetDefault("PROXIES", "")
	v.SetDefault("PERSIST_LISTINGS", false)
	v.SetDefault("OUTPUT_PATH", "businesses.jsonl")
	v.SetDefault("CSV_EXPORT_PATH", "")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEDUP_TTL_HOURS", 24)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	if c.CrawlWorkers <= 0 {
		return fmt.Errorf("CRAWL_WORKERS must be positive, got %d", c.CrawlWorkers)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("MAX_REQUESTS must not be negative, got %d", c.MaxRequests)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	switch c.FetchMode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		return fmt.Errorf("FETCH_MODE must be %q or %q, got %q", FetchModeHTTP, FetchModeBrowser, c.FetchMode)
	}
	return nil
}

// SearchURL is the absolute URL of the registry search form endpoint.
func (c *Config) SearchURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.SearchPath, "/")
}

// Timeout is the per-fetch timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CrawlTimeout) * time.Second
}

// DedupTTL is how long a task identity stays in a shared dedup store.
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

// ParseQueries splits a comma-separated query list, trimming whitespace and
// dropping empty entries. Order is preserved.
func ParseQueries(raw string) []string {
	return SplitList(raw)
}

// SplitList splits a comma-separated list into trimmed, non-empty items.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
