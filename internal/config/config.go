package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretBytes is the shortest signing secret accepted (256 bits).
const MinSecretBytes = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Audit    AuditConfig
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
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	// ApplicationName is reported to the server as application_name.
	ApplicationName string
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
	// Output is a zap sink: stdout, stderr or a file path.
	Output string
}

// AuthConfig defines token and session parameters.
type AuthConfig struct {
	JWTSecret                string
	Issuer                   string
	Audience                 string
	AccessTokenTTLMinutes    int
	InterimTokenTTLMinutes   int
	ImpersonatorRoles        []string
	ImpersonatableRoles      []string
	PasswordDigest           string
	StoreTimeoutMilliseconds int
}

// AuditConfig controls where activity events end up.
type AuditConfig struct {
	Stream    string
	QueueSize int
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
			Name:                  getEnv("APP_NAME", "backbone-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ApplicationName: getEnv("POSTGRES_APPLICATION_NAME", getEnv("APP_NAME", "backbone-auth")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Auth: AuthConfig{
			JWTSecret:                os.Getenv("AUTH_JWT_SECRET"),
			Issuer:                   getEnv("AUTH_JWT_ISSUER", "backbone-auth"),
			Audience:                 getEnv("AUTH_JWT_AUDIENCE", "backbone-api"),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			InterimTokenTTLMinutes:   getEnvAsInt("AUTH_INTERIM_TOKEN_TTL_MINUTES", 5),
			ImpersonatorRoles:        getEnvAsList("AUTH_IMPERSONATOR_ROLES", []string{"Admin"}),
			ImpersonatableRoles:      getEnvAsList("AUTH_IMPERSONATABLE_ROLES", []string{"Master", "Subscriber"}),
			PasswordDigest:           getEnv("AUTH_PASSWORD_DIGEST", "sha512"),
			StoreTimeoutMilliseconds: getEnvAsInt("AUTH_STORE_TIMEOUT_MS", 3000),
		},
		Audit: AuditConfig{
			Stream:    getEnv("AUDIT_STREAM", "auth:activity"),
			QueueSize: getEnvAsInt("AUDIT_QUEUE_SIZE", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the token flows cannot run safely with.
func (c *Config) Validate() error {
	return c.Auth.Validate()
}

// Validate checks the signing and session parameters.
func (a AuthConfig) Validate() error {
	var errs []error
	if len(a.JWTSecret) < MinSecretBytes {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", MinSecretBytes))
	}
	if strings.TrimSpace(a.Issuer) == "" {
		errs = append(errs, errors.New("AUTH_JWT_ISSUER is required"))
	}
	if strings.TrimSpace(a.Audience) == "" {
		errs = append(errs, errors.New("AUTH_JWT_AUDIENCE is required"))
	}
	if a.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if a.InterimTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_INTERIM_TOKEN_TTL_MINUTES must be positive"))
	} else if a.InterimTokenTTLMinutes >= a.AccessTokenTTLMinutes {
		errs = append(errs, errors.New("AUTH_INTERIM_TOKEN_TTL_MINUTES must be shorter than the access token TTL"))
	}
	if len(a.ImpersonatorRoles) == 0 {
		errs = append(errs, errors.New("AUTH_IMPERSONATOR_ROLES must name at least one role"))
	}
	switch a.PasswordDigest {
	case "sha512", "blake2b":
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_PASSWORD_DIGEST %q", a.PasswordDigest))
	}
	return errors.Join(errs...)
}

// AccessTokenTTL returns the lifetime of final tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// InterimTokenTTL returns the lifetime of role-selection tokens.
func (a AuthConfig) InterimTokenTTL() time.Duration {
	return time.Duration(a.InterimTokenTTLMinutes) * time.Minute
}

// StoreTimeout bounds each user store call. Zero disables the bound.
func (a AuthConfig) StoreTimeout() time.Duration {
	if a.StoreTimeoutMilliseconds <= 0 {
		return 0
	}
	return time.Duration(a.StoreTimeoutMilliseconds) * time.Millisecond
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
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
