package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	QueueSize       int
}

type ScraperConfig struct {
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	IdleProbability   float64
	NavigationTimeout time.Duration
	RevealSettle      time.Duration
	RevealTimeout     time.Duration
	RevealPoll        time.Duration
	InterKindDelay    time.Duration
	ErrorLogSize      int
	HintsFile         string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	StorageState   string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// Enabled reports whether profiles should go to Postgres.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != "" && d.DBName != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode, d.MaxConns)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			QueueSize:       getIntOrDefault("SERVER_QUEUE_SIZE", 100),
		},
		Scraper: ScraperConfig{
			BaseDelay:         getDurationOrDefault("SCRAPER_BASE_DELAY", 3*time.Second),
			MaxDelay:          getDurationOrDefault("SCRAPER_MAX_DELAY", 60*time.Second),
			IdleProbability:   getFloatOrDefault("SCRAPER_IDLE_PROBABILITY", 0.3),
			NavigationTimeout: getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", 30*time.Second),
			RevealSettle:      getDurationOrDefault("SCRAPER_REVEAL_SETTLE", 1500*time.Millisecond),
			RevealTimeout:     getDurationOrDefault("SCRAPER_REVEAL_TIMEOUT", 6*time.Second),
			RevealPoll:        getDurationOrDefault("SCRAPER_REVEAL_POLL", 200*time.Millisecond),
			InterKindDelay:    getDurationOrDefault("SCRAPER_INTER_KIND_DELAY", 500*time.Millisecond),
			ErrorLogSize:      getIntOrDefault("SCRAPER_ERROR_LOG_SIZE", 20),
			HintsFile:         getEnvOrDefault("CONTACT_HINTS_FILE", ""),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "pt-BR,pt;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Sao_Paulo"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "pt-BR"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
			StorageState:   getEnvOrDefault("BROWSER_STORAGE_STATE", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "candidates"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:candidate_profiles"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.BaseDelay < 0 {
		return fmt.Errorf("SCRAPER_BASE_DELAY cannot be negative")
	}

	if c.Scraper.MaxDelay < c.Scraper.BaseDelay {
		return fmt.Errorf("SCRAPER_MAX_DELAY cannot be less than SCRAPER_BASE_DELAY")
	}

	if c.Scraper.IdleProbability < 0 || c.Scraper.IdleProbability > 1 {
		return fmt.Errorf("SCRAPER_IDLE_PROBABILITY must be between 0 and 1")
	}

	if c.Scraper.ErrorLogSize < 1 {
		return fmt.Errorf("SCRAPER_ERROR_LOG_SIZE must be at least 1")
	}

	if c.Server.QueueSize < 1 {
		return fmt.Errorf("SERVER_QUEUE_SIZE must be at least 1")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
