package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the sync service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	CRM      CRMConfig
	Telegram TelegramConfig
	Sync     SyncConfig
}

// AppConfig controls the ops HTTP surface.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for the registration store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication for the admin API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OpsUsername           string
	OpsPasswordHash       string
}

// CRMConfig holds CRM API endpoints, token credentials, and retry tuning.
type CRMConfig struct {
	BaseURL           string
	AccountsURL       string
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	AccountID         string
	LeadSource        string
	PageSize          int
	MaxRetryAttempts  int
	RetryDelaySeconds int
}

// TelegramConfig routes notification messages.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// SyncConfig tunes the polling worker.
type SyncConfig struct {
	PollIntervalSeconds int
	Enabled             bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "registration-sync"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OpsUsername:           getEnv("OPS_USERNAME", "operator"),
			OpsPasswordHash:       os.Getenv("OPS_PASSWORD_HASH"),
		},
		CRM: CRMConfig{
			BaseURL:           getEnv("CRM_BASE_URL", "https://www.zohoapis.com"),
			AccountsURL:       getEnv("CRM_ACCOUNTS_URL", "https://accounts.zoho.com"),
			ClientID:          os.Getenv("CRM_CLIENT_ID"),
			ClientSecret:      os.Getenv("CRM_CLIENT_SECRET"),
			RefreshToken:      os.Getenv("CRM_REFRESH_TOKEN"),
			AccountID:         os.Getenv("CRM_ACCOUNT_ID"),
			LeadSource:        getEnv("CRM_LEAD_SOURCE", "Web"),
			PageSize:          getEnvAsInt("CRM_PAGE_SIZE", 200),
			MaxRetryAttempts:  getEnvAsInt("CRM_MAX_RETRY_ATTEMPTS", 5),
			RetryDelaySeconds: getEnvAsInt("CRM_RETRY_DELAY_SECONDS", 60),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			APIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},
		Sync: SyncConfig{
			PollIntervalSeconds: getEnvAsInt("SYNC_POLL_INTERVAL_SECONDS", 300),
			Enabled:             getEnvAsBool("SYNC_ENABLED", true),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed wait inserted between retried CRM calls.
func (c CRMConfig) RetryDelay() time.Duration {
	if c.RetryDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// PollInterval returns the wait between poll cycles.
func (s SyncConfig) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
