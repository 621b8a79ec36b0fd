// Package config loads settings from defaults, an optional YAML file, .env and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = "8080"
	DefaultUpstreamURL      = "http://localhost:5000"
	DefaultTemporalHost     = "localhost:7233"
	DefaultChatPollInterval = 3 * time.Second
	DefaultFallbackPriceMin = 100
	DefaultFallbackPriceMax = 400
	DefaultAirportCodeLen   = 3
)

// Config holds every setting of the server and worker binaries
type Config struct {
	Port string `yaml:"port"`

	Upstream UpstreamConfig `yaml:"upstream"`
	KV       KVConfig       `yaml:"kv"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Chat     ChatConfig     `yaml:"chat"`

	TemporalHost string `yaml:"temporal_host"`
	TaskQueue    string `yaml:"task_queue"`

	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// UpstreamConfig points at the travel backend
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`
}

// KVConfig selects the client-state store
type KVConfig struct {
	Backend   string `yaml:"backend"` // memory, sqlite, redis, postgres, mongo
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redis_addr"`
	MongoURI  string `yaml:"mongo_uri"`
	Namespace string `yaml:"namespace"`
}

// PricingConfig holds the product heuristics for unpriced items
type PricingConfig struct {
	FallbackMin    int `yaml:"fallback_min"`
	FallbackMax    int `yaml:"fallback_max"`
	AirportCodeLen int `yaml:"airport_code_len"`
}

// ChatConfig controls conversation following
type ChatConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port: DefaultPort,
		Upstream: UpstreamConfig{
			BaseURL:        DefaultUpstreamURL,
			Timeout:        10 * time.Second,
			RequestsPerSec: 20,
			Burst:          5,
		},
		KV: KVConfig{
			Backend:   "memory",
			Namespace: "planner",
		},
		Pricing: PricingConfig{
			FallbackMin:    DefaultFallbackPriceMin,
			FallbackMax:    DefaultFallbackPriceMax,
			AirportCodeLen: DefaultAirportCodeLen,
		},
		Chat:         ChatConfig{PollInterval: DefaultChatPollInterval},
		TemporalHost: "",
		TaskQueue:    "trip-checkout-queue",
		LogLevel:     "info",
		LogFormat:    "json",
		CORSOrigins:  []string{"*"},
	}
}

// Load builds the configuration. The YAML file named by PLANNER_CONFIG is applied
// over the defaults, then .env is loaded if present, then environment variables win.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("API_PORT", c.Port)
	c.Upstream.BaseURL = getEnv("UPSTREAM_URL", c.Upstream.BaseURL)
	c.Upstream.Timeout = getEnvDuration("UPSTREAM_TIMEOUT", c.Upstream.Timeout)
	c.Upstream.RequestsPerSec = getEnvFloat("UPSTREAM_RPS", c.Upstream.RequestsPerSec)
	c.KV.Backend = getEnv("KV_BACKEND", c.KV.Backend)
	c.KV.DSN = getEnv("KV_DSN", c.KV.DSN)
	c.KV.RedisAddr = getEnv("REDIS_ADDR", c.KV.RedisAddr)
	c.KV.MongoURI = getEnv("MONGO_URI", c.KV.MongoURI)
	c.TemporalHost = getEnv("TEMPORAL_HOST", c.TemporalHost)
	c.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", c.TaskQueue)
	c.Chat.PollInterval = getEnvDuration("CHAT_POLL_INTERVAL", c.Chat.PollInterval)
	c.Pricing.FallbackMin = getEnvInt("FALLBACK_PRICE_MIN", c.Pricing.FallbackMin)
	c.Pricing.FallbackMax = getEnvInt("FALLBACK_PRICE_MAX", c.Pricing.FallbackMax)
	c.Pricing.AirportCodeLen = getEnvInt("AIRPORT_CODE_LEN", c.Pricing.AirportCodeLen)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}
}

// Validate rejects settings the binaries cannot run with.
func (c Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base url is required")
	}
	if c.Pricing.FallbackMin <= 0 || c.Pricing.FallbackMax < c.Pricing.FallbackMin {
		return fmt.Errorf("invalid fallback price range %d..%d", c.Pricing.FallbackMin, c.Pricing.FallbackMax)
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat poll interval must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
