package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	LLM      LLMConfig      `toml:"llm"`
	Chunker  ChunkerConfig  `toml:"chunker"`
	Session  SessionConfig  `toml:"session"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	Tracing  TracingConfig  `toml:"tracing"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Env         string `toml:"env"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	FrontendURL string `toml:"frontend_url"`
	StaticDir   string `toml:"static_dir"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ChunkerConfig struct {
	MaxLength           int `toml:"max_length"`
	ChunkTimeoutSeconds int `toml:"chunk_timeout_seconds"`
}

type SessionConfig struct {
	Backend   string `toml:"backend"`
	KeyPrefix string `toml:"key_prefix"`
}

// RedisConfig is only dialed when the session backend is redis or the
// explanation cache is enabled.
type RedisConfig struct {
	Addr                  string `toml:"addr"`
	Password              string `toml:"password"`
	DB                    int    `toml:"db"`
	ExplanationTTLSeconds int    `toml:"explanation_ttl_seconds"`
}

// RabbitMQConfig leaves event publishing off when URL is empty.
type RabbitMQConfig struct {
	URL         string `toml:"url"`
	EventsQueue string `toml:"events_queue"`
}

type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Exporter    string  `toml:"exporter"`
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
}

func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		errs = append(errs, errors.New("llm.api_key is required (LLM_API_KEY or GEMINI_API_KEY)"))
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" || strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.base_url and llm.model are required"))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port %d is out of range", c.App.Port))
	}
	if c.App.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("app.max_upload_mb must be positive"))
	}
	if c.Chunker.MaxLength <= 0 {
		errs = append(errs, errors.New("chunker.max_length must be positive"))
	}
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("session.backend %q is not one of memory, redis", c.Session.Backend))
	}
	return errors.Join(errs...)
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.App.MaxUploadMB) << 20
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.App.Env, "dev") || strings.EqualFold(c.App.Env, "development")
}

// RedisRequired reports whether any component needs a Redis connection.
func (c *Config) RedisRequired() bool {
	return c.Session.Backend == SessionBackendRedis || c.Redis.ExplanationTTLSeconds > 0
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "medtree",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        3000,
			GinMode:     "debug",
			FrontendURL: "*",
			StaticDir:   "",
			MaxUploadMB: 10,
		},
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai",
			APIKey:         "",
			Model:          "gemini-2.0-flash",
			TimeoutSeconds: 90,
		},
		Chunker: ChunkerConfig{
			MaxLength:           4000,
			ChunkTimeoutSeconds: 60,
		},
		Session: SessionConfig{
			Backend:   SessionBackendMemory,
			KeyPrefix: "medtree:chat",
		},
		Redis: RedisConfig{
			Addr:                  "127.0.0.1:6379",
			Password:              "",
			DB:                    0,
			ExplanationTTLSeconds: 0,
		},
		RabbitMQ: RabbitMQConfig{
			URL:         "",
			EventsQueue: "medtree.events",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			Endpoint:    "",
			SampleRatio: 1,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("PORT", cfg.App.Port)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", cfg.App.FrontendURL)
	cfg.App.StaticDir = getEnv("STATIC_DIR", cfg.App.StaticDir)
	cfg.App.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", cfg.App.MaxUploadMB)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Chunker.MaxLength = getEnvAsInt("CHUNK_MAX_LENGTH", cfg.Chunker.MaxLength)
	cfg.Chunker.ChunkTimeoutSeconds = getEnvAsInt("CHUNK_TIMEOUT_SECONDS", cfg.Chunker.ChunkTimeoutSeconds)

	cfg.Session.Backend = strings.ToLower(getEnv("SESSION_BACKEND", cfg.Session.Backend))
	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", cfg.Session.KeyPrefix)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ExplanationTTLSeconds = getEnvAsInt("REDIS_EXPLANATION_TTL_SECONDS", cfg.Redis.ExplanationTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.EventsQueue = getEnv("RABBITMQ_EVENTS_QUEUE", cfg.RabbitMQ.EventsQueue)

	cfg.Tracing.Enabled = getEnvAsBool("OTEL_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("OTEL_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRatio = getEnvAsFloat("OTEL_SAMPLER_RATIO", cfg.Tracing.SampleRatio)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
