package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Data source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
// The env tag names the variable each field is read from.
type Config struct {
	AppEnv string `env:"APP_ENV" validate:"required"`
	Port   string `env:"PORT"`

	DataSource  string `env:"DATA_SOURCE" validate:"oneof=file postgres"`
	DataFile    string `env:"DATA_FILE" validate:"required_if=DataSource file"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=DataSource postgres"`
	DBMigrate   bool   `env:"DB_MIGRATE"`
	RedisURL    string `env:"REDIS_URL" validate:"required_with=ReportSchedule"`

	SourceRetryAttempts       int           `env:"SOURCE_RETRY_ATTEMPTS" validate:"gte=1"`
	SourceRetryBackoff        time.Duration `env:"SOURCE_RETRY_BACKOFF" validate:"gte=0"`
	SourceBreakerMinRequests  int           `env:"SOURCE_BREAKER_MIN_REQUESTS" validate:"gte=1"`
	SourceBreakerFailureRatio float64       `env:"SOURCE_BREAKER_FAILURE_RATIO" validate:"gt=0,lte=1"`
	SourceBreakerOpenFor      time.Duration `env:"SOURCE_BREAKER_OPEN_FOR" validate:"gt=0"`

	ReportCacheTTL  time.Duration `env:"REPORT_CACHE_TTL" validate:"gte=0"`
	RevenueStrategy string        `env:"REVENUE_STRATEGY" validate:"required"`
	BonusStrategy   string        `env:"BONUS_STRATEGY" validate:"required"`
	BonusTopBps     int32         `env:"BONUS_TOP_BPS" validate:"gte=0,lte=10000"`
	BonusPodiumBps  int32         `env:"BONUS_PODIUM_BPS" validate:"gte=0,lte=10000"`
	BonusDefaultBps int32         `env:"BONUS_DEFAULT_BPS" validate:"gte=0,lte=10000"`
	BonusLastBps    int32         `env:"BONUS_LAST_BPS" validate:"gte=0,lte=10000"`

	QueueName        string        `env:"QUEUE_NAME" validate:"required"`
	QueueConcurrency int           `env:"QUEUE_CONCURRENCY" validate:"gte=1"`
	QueueMaxRetry    int           `env:"QUEUE_MAX_RETRY" validate:"gte=0"`
	QueueTaskTimeout time.Duration `env:"QUEUE_TASK_TIMEOUT" validate:"gte=0"`
	ReportSchedule   string        `env:"REPORT_SCHEDULE"`

	RateLimit          string        `env:"RATE_LIMIT"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	SecurityHeaders    bool          `env:"SECURITY_HEADERS_ENABLE"`
	SecurityHSTS       bool          `env:"SECURITY_HSTS_ENABLE"`

	LogFormat            string  `env:"OBS_LOG_FORMAT" validate:"oneof=json console text"`
	LogLevel             string  `env:"OBS_LOG_LEVEL"`
	MetricsNamespace     string  `env:"OBS_METRICS_NAMESPACE"`
	MetricsBucketsMS     string  `env:"OBS_METRICS_BUCKETS_MS"`
	EnablePrometheus     bool    `env:"OBS_ENABLE_PROMETHEUS"`
	EnableTracing        bool    `env:"OBS_ENABLE_TRACING"`
	TracingExporter      string  `env:"OBS_TRACING_EXPORTER" validate:"oneof=otlp none"`
	OTLPEndpoint         string  `env:"OBS_OTLP_ENDPOINT"`
	TracingSamplingRatio float64 `env:"OBS_TRACING_SAMPLING_RATIO" validate:"gte=0,lte=1"`
	EnablePprof          bool    `env:"OBS_ENABLE_PPROF"`
	PprofUser            string  `env:"SECURE_PPROF_BASIC_AUTH_USER"`
	PprofPass            string  `env:"SECURE_PPROF_BASIC_AUTH_PASS" validate:"required_with=PprofUser"`
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DataSource:  strings.ToLower(valueOrDefault(k.String("DATA_SOURCE"), SourceFile)),
		DataFile:    valueOrDefault(k.String("DATA_FILE"), "data/sales.json"),
		DatabaseURL: strings.TrimSpace(k.String("DATABASE_URL")),
		DBMigrate:   parseBool(k.String("DB_MIGRATE"), false),
		RedisURL:    strings.TrimSpace(k.String("REDIS_URL")),

		SourceRetryAttempts:       parseInt(k.String("SOURCE_RETRY_ATTEMPTS"), 3),
		SourceRetryBackoff:        parseDuration(k.String("SOURCE_RETRY_BACKOFF"), "200ms"),
		SourceBreakerMinRequests:  parseInt(k.String("SOURCE_BREAKER_MIN_REQUESTS"), 5),
		SourceBreakerFailureRatio: parseFloat(k.String("SOURCE_BREAKER_FAILURE_RATIO"), 0.5),
		SourceBreakerOpenFor:      parseDuration(k.String("SOURCE_BREAKER_OPEN_FOR"), "30s"),

		ReportCacheTTL:  parseDuration(k.String("REPORT_CACHE_TTL"), "5m"),
		RevenueStrategy: strings.ToLower(valueOrDefault(k.String("REVENUE_STRATEGY"), "simple")),
		BonusStrategy:   strings.ToLower(valueOrDefault(k.String("BONUS_STRATEGY"), "profit-tiers")),
		BonusTopBps:     int32(parseInt(k.String("BONUS_TOP_BPS"), 1500)),
		BonusPodiumBps:  int32(parseInt(k.String("BONUS_PODIUM_BPS"), 1000)),
		BonusDefaultBps: int32(parseInt(k.String("BONUS_DEFAULT_BPS"), 500)),
		BonusLastBps:    int32(parseInt(k.String("BONUS_LAST_BPS"), 0)),

		QueueName:        valueOrDefault(k.String("QUEUE_NAME"), "reports"),
		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 2),
		QueueMaxRetry:    parseInt(k.String("QUEUE_MAX_RETRY"), 5),
		QueueTaskTimeout: parseDuration(k.String("QUEUE_TASK_TIMEOUT"), "2m"),
		ReportSchedule:   strings.TrimSpace(k.String("REPORT_SCHEDULE")),

		RateLimit:          strings.TrimSpace(k.String("RATE_LIMIT")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		SecurityHeaders:    parseBool(k.String("SECURITY_HEADERS_ENABLE"), true),
		SecurityHSTS:       parseBool(k.String("SECURITY_HSTS_ENABLE"), false),

		LogFormat:            strings.ToLower(valueOrDefault(k.String("OBS_LOG_FORMAT"), "json")),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "sales"),
		MetricsBucketsMS:     k.String("OBS_METRICS_BUCKETS_MS"),
		EnablePrometheus:     parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		EnableTracing:        parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:      strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp")),
		OTLPEndpoint:         strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		EnablePprof:          parseBool(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:            strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:            strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return func(cfg *Config) error {
		err := v.Struct(cfg)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
