package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Account      AccountConfig
	Scheduler    SchedulerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
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
	Level    string
	Encoding string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// NotificationConfig holds the outbound email channel settings. An empty
// SMTPHost selects the log-only channel.
type NotificationConfig struct {
	EmailFrom    string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

// AccountConfig is the policy surface consumed by the account core.
type AccountConfig struct {
	OpenSignup                  bool
	SiteURL                     string
	EmailUnique                 bool
	EmailConfirmationRequired   bool
	EmailConfirmationEmail      bool
	EmailConfirmationExpireDays int
	SignupCodeExpiryHours       int
	PasswordUseHistory          bool
	PasswordExpirySeconds       int
	PasswordExpiryCacheTTLSec   int
	NotifyOnPasswordChange      bool
	DeletionExpungeHours        int
	DefaultLanguage             string
	Languages                   []string
	DefaultTimezone             string
}

// SchedulerConfig holds cron specs for background sweeps. An empty spec
// disables the job.
type SchedulerConfig struct {
	ExpungeSpec           string
	ConfirmationPurgeSpec string
}

// DefaultAccountConfig returns the documented defaults.
func DefaultAccountConfig() AccountConfig {
	return AccountConfig{
		OpenSignup:                  true,
		SiteURL:                     "http://localhost:8080",
		EmailUnique:                 true,
		EmailConfirmationRequired:   false,
		EmailConfirmationEmail:      true,
		EmailConfirmationExpireDays: 3,
		SignupCodeExpiryHours:       24,
		PasswordUseHistory:          false,
		PasswordExpirySeconds:       0,
		PasswordExpiryCacheTTLSec:   60,
		NotifyOnPasswordChange:      true,
		DeletionExpungeHours:        48,
		DefaultLanguage:             "en",
		Languages:                   []string{"en"},
		DefaultTimezone:             "UTC",
	}
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaults := DefaultAccountConfig()

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "account-service"),
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
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 60),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		},
		Account: AccountConfig{
			OpenSignup:                  getEnvAsBool("ACCOUNT_OPEN_SIGNUP", defaults.OpenSignup),
			SiteURL:                     strings.TrimRight(getEnv("ACCOUNT_SITE_URL", defaults.SiteURL), "/"),
			EmailUnique:                 getEnvAsBool("ACCOUNT_EMAIL_UNIQUE", defaults.EmailUnique),
			EmailConfirmationRequired:   getEnvAsBool("ACCOUNT_EMAIL_CONFIRMATION_REQUIRED", defaults.EmailConfirmationRequired),
			EmailConfirmationEmail:      getEnvAsBool("ACCOUNT_EMAIL_CONFIRMATION_EMAIL", defaults.EmailConfirmationEmail),
			EmailConfirmationExpireDays: getEnvAsInt("ACCOUNT_EMAIL_CONFIRMATION_EXPIRE_DAYS", defaults.EmailConfirmationExpireDays),
			SignupCodeExpiryHours:       getEnvAsInt("ACCOUNT_SIGNUP_CODE_EXPIRY_HOURS", defaults.SignupCodeExpiryHours),
			PasswordUseHistory:          getEnvAsBool("ACCOUNT_PASSWORD_USE_HISTORY", defaults.PasswordUseHistory),
			PasswordExpirySeconds:       getEnvAsInt("ACCOUNT_PASSWORD_EXPIRY_SECONDS", defaults.PasswordExpirySeconds),
			PasswordExpiryCacheTTLSec:   getEnvAsInt("PASSWORD_EXPIRY_CACHE_TTL_SECONDS", defaults.PasswordExpiryCacheTTLSec),
			NotifyOnPasswordChange:      getEnvAsBool("ACCOUNT_NOTIFY_ON_PASSWORD_CHANGE", defaults.NotifyOnPasswordChange),
			DeletionExpungeHours:        getEnvAsInt("ACCOUNT_DELETION_EXPUNGE_HOURS", defaults.DeletionExpungeHours),
			DefaultLanguage:             getEnv("ACCOUNT_DEFAULT_LANGUAGE", defaults.DefaultLanguage),
			Languages:                   getEnvAsList("ACCOUNT_LANGUAGES", defaults.Languages),
			DefaultTimezone:             getEnv("ACCOUNT_DEFAULT_TIMEZONE", defaults.DefaultTimezone),
		},
		Scheduler: SchedulerConfig{
			ExpungeSpec:           getEnv("ACCOUNT_DELETION_EXPUNGE_SCHEDULE", "@hourly"),
			ConfirmationPurgeSpec: os.Getenv("EMAIL_CONFIRMATION_PURGE_SCHEDULE"),
		},
	}

	if err := cfg.Account.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the account core cannot work with.
func (a AccountConfig) Validate() error {
	switch {
	case a.EmailConfirmationExpireDays < 0:
		return fmt.Errorf("ACCOUNT_EMAIL_CONFIRMATION_EXPIRE_DAYS must not be negative")
	case a.PasswordExpirySeconds < 0:
		return fmt.Errorf("ACCOUNT_PASSWORD_EXPIRY_SECONDS must not be negative")
	case a.DeletionExpungeHours < 0:
		return fmt.Errorf("ACCOUNT_DELETION_EXPUNGE_HOURS must not be negative")
	case a.SignupCodeExpiryHours <= 0:
		return fmt.Errorf("ACCOUNT_SIGNUP_CODE_EXPIRY_HOURS must be positive")
	}
	if _, err := time.LoadLocation(a.DefaultTimezone); err != nil {
		return fmt.Errorf("ACCOUNT_DEFAULT_TIMEZONE: %w", err)
	}
	if !a.SupportsLanguage(a.DefaultLanguage) {
		return fmt.Errorf("ACCOUNT_DEFAULT_LANGUAGE %q is not listed in ACCOUNT_LANGUAGES", a.DefaultLanguage)
	}
	return nil
}

// ConfirmationWindow is how long an email confirmation key stays valid after sending.
func (a AccountConfig) ConfirmationWindow() time.Duration {
	return time.Duration(a.EmailConfirmationExpireDays) * 24 * time.Hour
}

// ExpungeGrace is the default delay between marking and purging an account.
func (a AccountConfig) ExpungeGrace() time.Duration {
	return time.Duration(a.DeletionExpungeHours) * time.Hour
}

// SupportsLanguage reports whether code is one of the configured languages.
func (a AccountConfig) SupportsLanguage(code string) bool {
	for _, l := range a.Languages {
		if strings.EqualFold(l, code) {
			return true
		}
	}
	return false
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

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
