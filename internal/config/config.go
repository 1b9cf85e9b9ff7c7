package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-report-service/internal/models"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort      string        `validate:"required"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	LogLevel        string

	ForecastURL string        `validate:"required,url"`
	ForecastTTL time.Duration `validate:"gt=0"`
	AlertsURL   string        `validate:"required,url"`
	AlertsTTL   time.Duration `validate:"gt=0"`

	UserAgent                      string        `validate:"required"`
	UpstreamTimeout                time.Duration `validate:"gt=0"`
	UpstreamRateLimitRPS           float64       `validate:"gte=0"`
	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold uint32
	CircuitBreakerTimeout          time.Duration

	CacheBackend          string `validate:"oneof=in_memory file sqlite memcached"`
	CacheDir              string
	SQLitePath            string
	CacheCoalesce         bool
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int `validate:"gt=0"`
	RateLimitBurst int `validate:"gt=0"`

	OverloadWindow       time.Duration `validate:"gt=0"`
	OverloadThresholdPct int           `validate:"gt=0,lte=100"`
	DegradedWindow       time.Duration `validate:"gt=0"`
	DegradedErrorPct     int           `validate:"gt=0,lte=100"`

	WarmInterval time.Duration `validate:"gte=0"`
	WarmPoints   []WarmPoint   `validate:"dive"`

	KafkaBrokers []string
	PublishTopic string
}

// WarmPoint is a location whose report is pre-compiled on WarmInterval.
type WarmPoint struct {
	Point  models.Point
	Metric bool
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Forecast struct {
		URL string `yaml:"url"`
		TTL string `yaml:"ttl"`
	} `yaml:"forecast"`

	Alerts struct {
		URL string `yaml:"url"`
		TTL string `yaml:"ttl"`
	} `yaml:"alerts"`

	Upstream struct {
		UserAgent      string  `yaml:"user_agent"`
		Timeout        string  `yaml:"timeout"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		CircuitBreaker struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold uint32 `yaml:"failure_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"upstream"`

	Cache struct {
		Backend    string `yaml:"backend"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		Coalesce   *bool  `yaml:"coalesce"`
		Memcached  struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Warm struct {
		Interval string `yaml:"interval"`
		Points   []struct {
			Lat    float64 `yaml:"lat"`
			Lon    float64 `yaml:"lon"`
			Metric *bool   `yaml:"metric"`
		} `yaml:"points"`
	} `yaml:"warm"`

	Publish struct {
		KafkaBrokers []string `yaml:"kafka_brokers"`
		Topic        string   `yaml:"topic"`
	} `yaml:"publish"`
}

var validate = validator.New()

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) after loading
// an optional .env file into the environment. Env vars override file values.
// Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := fromFile(&fc)
	applyEnv(cfg)

	if err := check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc *fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = orDefault(fc.Server.Port, "8080")
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.ForecastURL = orDefault(fc.Forecast.URL, "https://api.open-meteo.com/v1/forecast")
	cfg.ForecastTTL = parseDuration(fc.Forecast.TTL, 30*time.Minute)
	cfg.AlertsURL = orDefault(fc.Alerts.URL, "https://api.weather.gov/alerts/active")
	cfg.AlertsTTL = parseDuration(fc.Alerts.TTL, 5*time.Minute)

	cfg.UserAgent = orDefault(fc.Upstream.UserAgent, "weather-report-service/dev")
	cfg.UpstreamTimeout = parseDurationOrZero(fc.Upstream.Timeout, 10*time.Second)
	cfg.UpstreamRateLimitRPS = fc.Upstream.RateLimitRPS
	cfg.CircuitBreakerEnabled = fc.Upstream.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.Upstream.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold == 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Upstream.CircuitBreaker.Timeout, 30*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheDir = orDefault(fc.Cache.Dir, filepath.Join("data", "cache"))
	cfg.SQLitePath = orDefault(fc.Cache.SQLitePath, filepath.Join("data", "cache.db"))
	cfg.CacheCoalesce = true
	if fc.Cache.Coalesce != nil {
		cfg.CacheCoalesce = *fc.Cache.Coalesce
	}
	cfg.MemcachedAddrs = orDefault(fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 25
	}

	cfg.WarmInterval = parseDurationOrZero(fc.Warm.Interval, 0)
	for _, p := range fc.Warm.Points {
		metric := true
		if p.Metric != nil {
			metric = *p.Metric
		}
		cfg.WarmPoints = append(cfg.WarmPoints, WarmPoint{
			Point:  models.Point{Lat: p.Lat, Lon: p.Lon},
			Metric: metric,
		})
	}

	cfg.KafkaBrokers = fc.Publish.KafkaBrokers
	cfg.PublishTopic = orDefault(fc.Publish.Topic, "weather-reports")
	return cfg
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) {
	if v := envValue("SERVER_PORT"); v != "" {
		cfg.ServerPort = v
	}
	if v := envValue("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.ToLower(envValue("CACHE_BACKEND")); v != "" {
		cfg.CacheBackend = v
	}
	if v := envValue("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := envValue("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := envValue("MEMCACHED_ADDRS"); v != "" {
		cfg.MemcachedAddrs = v
	}
	if v := envValue("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	cfg.LogLevel = orDefault(envValue("LOG_LEVEL"), "INFO")
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

// check runs struct-tag validation, then cross-field rules. RequestTimeout is
// raised above UpstreamTimeout when needed so a request can outlive one upstream call.
func check(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + time.Second
	}
	if cfg.CircuitBreakerEnabled && cfg.CircuitBreakerTimeout <= 0 {
		return fmt.Errorf("upstream.circuit_breaker.timeout must be positive")
	}
	if len(cfg.KafkaBrokers) > 0 && strings.TrimSpace(cfg.PublishTopic) == "" {
		return fmt.Errorf("publish.topic required when kafka brokers are set")
	}
	return nil
}
