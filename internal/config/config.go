// Package config builds the typed process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	AdapterPGX  = "pgx"
	AdapterSQLX = "sqlx"

	devJWTSecret = "development-only-secret"
)

type Config struct {
	Port        string
	Env         string
	FrontendURL string
	LogLevel    slog.Level
	BodyLimit   int

	JWTSecret    string
	JWTExpire    time.Duration
	BcryptRounds int
	LoanPeriod   time.Duration

	DB    DBConfig
	Mongo MongoConfig
	Minio MinioConfig
}

type DBConfig struct {
	Driver         string
	Adapter        string
	URL            string
	PoolMax        int
	PoolMin        int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	SQLitePath     string
}

type MongoConfig struct {
	URI      string
	Database string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether cover storage is configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads the configuration from the environment. Every invalid value is
// reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		Port:        envString("PORT", "5000"),
		Env:         strings.ToLower(envString("APP_ENV", EnvDevelopment)),
		FrontendURL: envString("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			Driver:     strings.ToLower(envString("DB_DRIVER", DriverPostgres)),
			Adapter:    strings.ToLower(envString("DB_ADAPTER", AdapterPGX)),
			URL:        os.Getenv("DATABASE_URL"),
			SQLitePath: envString("SQLITE_PATH", "data/library.db"),
		},
		Mongo: MongoConfig{
			URI:      envString("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: envString("MONGO_DB", "school_library"),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    envString("MINIO_BUCKET", "book-covers"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
	}

	var err error
	cfg.LogLevel, err = envLogLevel("LOG_LEVEL", slog.LevelInfo)
	collect(err)
	cfg.BodyLimit, err = envBytes("BODY_LIMIT", "10kb")
	collect(err)
	cfg.JWTExpire, err = envDuration("JWT_EXPIRE", 7*24*time.Hour)
	collect(err)
	cfg.BcryptRounds, err = envInt("BCRYPT_ROUNDS", 10)
	collect(err)
	loanDays, err := envInt("LOAN_PERIOD_DAYS", 14)
	collect(err)
	cfg.LoanPeriod = time.Duration(loanDays) * 24 * time.Hour

	cfg.DB.PoolMax, err = envInt("DB_POOL_MAX", 10)
	collect(err)
	cfg.DB.PoolMin, err = envInt("DB_POOL_MIN", 2)
	collect(err)
	cfg.DB.IdleTimeout, err = envDuration("DB_IDLE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.DB.ConnectTimeout, err = envDuration("DB_CONNECT_TIMEOUT", 2*time.Second)
	collect(err)
	if cfg.DB.URL == "" {
		cfg.DB.URL = postgresURLFromParts()
	}

	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo, DriverMemory:
	default:
		collect(fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DB.Driver))
	}
	switch cfg.DB.Adapter {
	case AdapterPGX, AdapterSQLX:
	default:
		collect(fmt.Errorf("DB_ADAPTER: unsupported adapter %q", cfg.DB.Adapter))
	}
	if loanDays <= 0 {
		collect(fmt.Errorf("LOAN_PERIOD_DAYS: must be positive, got %d", loanDays))
	}
	if cfg.BcryptRounds < 4 || cfg.BcryptRounds > 31 {
		collect(fmt.Errorf("BCRYPT_ROUNDS: must be between 4 and 31, got %d", cfg.BcryptRounds))
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			collect(errors.New("JWT_SECRET: required in production"))
		}
		cfg.JWTSecret = devJWTSecret
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// postgresURLFromParts assembles a connection URL from the discrete DB_* variables.
func postgresURLFromParts() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envString("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:     net.JoinHostPort(envString("DB_HOST", "localhost"), envString("DB_PORT", "5432")),
		Path:     "/" + envString("DB_NAME", "school_library"),
		RawQuery: "sslmode=" + envString("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func envBytes(name, fallback string) (int, error) {
	raw := envString(name, fallback)
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return int(n), nil
}

func envLogLevel(name string, fallback slog.Level) (slog.Level, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}
	return level, nil
}

// ParseDuration accepts Go durations plus a whole-day form such as "7d".
func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}
