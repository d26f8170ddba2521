package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Local state
	DataDir      string
	LedgerFile   string
	LedgerStore  string // file, postgres
	StrategyFile string

	// Screening
	Workers      int
	FetchTimeout time.Duration

	// Database (optional price store tier)
	Database DatabaseConfig

	// Redis (optional series cache tier)
	Redis RedisConfig

	// Market data providers
	Quotes QuotesConfig
	Ratios RatiosConfig
	HTTP   HTTPConfig

	// Cache
	CacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// QuotesConfig holds the chart API configuration
type QuotesConfig struct {
	BaseURL      string
	SymbolSuffix string // e.g. ".VN"
}

// RatiosConfig holds the company ratio page configuration
type RatiosConfig struct {
	BaseURL string
}

// HTTPConfig holds outbound HTTP behaviour
type HTTPConfig struct {
	Timeout    time.Duration
	RateLimit  float64 // requests per second, 0 = unlimited
	MaxRetries int
	UserAgent  string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DataDir:      dataDir,
		LedgerFile:   getEnv("LEDGER_FILE", filepath.Join(dataDir, "portfolio.json")),
		LedgerStore:  getEnv("LEDGER_STORE", "file"),
		StrategyFile: getEnv("STRATEGY_FILE", filepath.Join(dataDir, "strategy.yaml")),

		Workers:      getEnvAsInt("WORKERS", 5),
		FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", "20s"),

		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "screener"),
			User:            getEnv("DB_USER", "screener"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Quotes: QuotesConfig{
			BaseURL:      getEnv("QUOTES_BASE_URL", "https://query1.finance.yahoo.com"),
			SymbolSuffix: getEnv("QUOTES_SYMBOL_SUFFIX", ".VN"),
		},

		Ratios: RatiosConfig{
			BaseURL: getEnv("RATIOS_BASE_URL", "https://www.screener.in"),
		},

		HTTP: HTTPConfig{
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "30s"),
			RateLimit:  getEnvAsFloat("HTTP_RATE_LIMIT", 2),
			MaxRetries: getEnvAsInt("HTTP_MAX_RETRIES", 3),
			UserAgent:  getEnv("HTTP_USER_AGENT", "stock-analysis-system/1.0"),
		},

		CacheTTL: getEnvAsDuration("CACHE_TTL", "24h"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if c.LedgerFile == "" {
		return fmt.Errorf("LEDGER_FILE is required")
	}

	switch c.LedgerStore {
	case "file":
	case "postgres":
		if !c.Database.Enabled {
			return fmt.Errorf("LEDGER_STORE=postgres requires DB_ENABLED=true")
		}
	default:
		return fmt.Errorf("LEDGER_STORE must be one of: file, postgres")
	}

	// DB tier is optional, but when enabled it needs a DSN
	if c.Database.Enabled && c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required when DB_ENABLED=true")
	}

	return nil
}

// DSN returns the connection string, preferring DATABASE_URL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
