package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
)

var (
	ErrMissingAPIKey  = errors.New("YELP_API_KEY is required")
	ErrMissingBaseURL = errors.New("YELP_BASE_URL is required")
	ErrMissingDB      = errors.New("DATABASE_URL is required for the postgres sink")
	ErrInvalidSink    = errors.New("SINK must be file or postgres")
	ErrInvalidLimit   = errors.New("SEARCH_LIMIT must be at least 2")
	ErrInvalidCeiling = errors.New("SEARCH_CEILING must be positive")
	ErrInvalidDepth   = errors.New("MAX_SPLIT_DEPTH must be positive")
	ErrMissingChatID  = errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
)

const (
	SinkFile     = "file"
	SinkPostgres = "postgres"
)

type Config struct {
	Yelp     YelpConfig
	Search   SearchConfig
	Sink     SinkConfig
	Database DatabaseConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Telegram TelegramConfig
}

type YelpConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type SearchConfig struct {
	Limit    int
	Ceiling  int
	MaxDepth int
}

type SinkConfig struct {
	Type   string
	Dir    string
	Prefix string
	Table  string
}

type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Addr string
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Yelp: YelpConfig{
			APIKey:  os.Getenv("YELP_API_KEY"),
			// эндпоинт должен принимать bounds=sw_lat,sw_lon|ne_lat,ne_lon, у v3 /search такого нет
			BaseURL: os.Getenv("YELP_BASE_URL"),
			Timeout: time.Duration(getEnvIntOrDefault("YELP_TIMEOUT_SEC", 30)) * time.Second,
		},
		Search: SearchConfig{
			Limit:    getEnvIntOrDefault("SEARCH_LIMIT", 20),
			Ceiling:  getEnvIntOrDefault("SEARCH_CEILING", domain.DefaultCeiling),
			MaxDepth: getEnvIntOrDefault("MAX_SPLIT_DEPTH", 10),
		},
		Sink: SinkConfig{
			Type:   getEnvOrDefault("SINK", SinkFile),
			Dir:    getEnvOrDefault("OUTPUT_DIR", "."),
			Prefix: getEnvOrDefault("OUTPUT_PREFIX", "yelp-biz-result-"),
			Table:  getEnvOrDefault("OUTPUT_TABLE", "business_results"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		Telegram: TelegramConfig{
			Token:  os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID: getEnvInt64OrDefault("TELEGRAM_CHAT_ID", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Yelp.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Yelp.BaseURL == "" {
		return ErrMissingBaseURL
	}
	switch c.Sink.Type {
	case SinkFile:
	case SinkPostgres:
		if c.Database.URL == "" {
			return ErrMissingDB
		}
	default:
		return ErrInvalidSink
	}
	if c.Search.Limit < domain.MinPageLimit {
		return ErrInvalidLimit
	}
	if c.Search.Ceiling < 1 {
		return ErrInvalidCeiling
	}
	if c.Search.MaxDepth < 1 {
		return ErrInvalidDepth
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return ErrMissingChatID
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
