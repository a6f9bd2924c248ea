package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	ShutdownTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Revenue   RevenueConfig
	Dashboard DashboardConfig
	Earnings  EarningsConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig controls which route groups require a bearer token.
type AuthConfig struct {
	ProtectAdmin bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RevenueConfig holds the attribution percentages expressed as fractions.
type RevenueConfig struct {
	TeacherBatchRate    float64
	PlatformBatchRate   float64
	TeacherEarningsRate float64
}

// DashboardConfig governs teacher dashboard caching.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// EarningsConfig tunes the background recompute queue fed by sale transitions.
type EarningsConfig struct {
	AsyncRecompute bool
	Workers        int
	BufferSize     int
	MaxRetries     int
	RetryDelay     time.Duration
}

// ExportConfig sets presentation options for batch exports.
type ExportConfig struct {
	PDFTitle string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Revenue.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects rates outside [0, 1]. Zero is allowed.
func (r RevenueConfig) validate() error {
	rates := map[string]float64{
		"REVENUE_TEACHER_BATCH_RATE":    r.TeacherBatchRate,
		"REVENUE_PLATFORM_BATCH_RATE":   r.PlatformBatchRate,
		"REVENUE_TEACHER_EARNINGS_RATE": r.TeacherEarningsRate,
	}
	for key, rate := range rates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", key, rate)
		}
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second)

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{ProtectAdmin: v.GetBool("AUTH_PROTECT_ADMIN")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Revenue = RevenueConfig{
		TeacherBatchRate:    v.GetFloat64("REVENUE_TEACHER_BATCH_RATE"),
		PlatformBatchRate:   v.GetFloat64("REVENUE_PLATFORM_BATCH_RATE"),
		TeacherEarningsRate: v.GetFloat64("REVENUE_TEACHER_EARNINGS_RATE"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Earnings = EarningsConfig{
		AsyncRecompute: v.GetBool("EARNINGS_ASYNC_RECOMPUTE"),
		Workers:        v.GetInt("EARNINGS_WORKERS"),
		BufferSize:     v.GetInt("EARNINGS_QUEUE_BUFFER"),
		MaxRetries:     v.GetInt("EARNINGS_MAX_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("EARNINGS_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Export = ExportConfig{PDFTitle: v.GetString("EXPORT_PDF_TITLE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cohort_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "cohort-admin-api")
	v.SetDefault("AUTH_PROTECT_ADMIN", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REVENUE_TEACHER_BATCH_RATE", 0.20)
	v.SetDefault("REVENUE_PLATFORM_BATCH_RATE", 0.30)
	v.SetDefault("REVENUE_TEACHER_EARNINGS_RATE", 0.30)

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("EARNINGS_ASYNC_RECOMPUTE", true)
	v.SetDefault("EARNINGS_WORKERS", 2)
	v.SetDefault("EARNINGS_QUEUE_BUFFER", 64)
	v.SetDefault("EARNINGS_MAX_RETRIES", 3)
	v.SetDefault("EARNINGS_RETRY_DELAY", "2s")

	v.SetDefault("EXPORT_PDF_TITLE", "Batch Overview")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
