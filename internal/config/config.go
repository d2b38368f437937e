package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the pipeline.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Warehouse   WarehouseConfig
	Redis       RedisConfig
	RawStore    RawStoreConfig
	Ingest      IngestConfig
	Pipeline    PipelineConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WarehouseConfig points at the analytics Postgres instance holding the fact
// and dimension tables.
type WarehouseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	CacheTTL time.Duration
}

// RawStoreConfig locates the BoltDB file backing the raw event store.
type RawStoreConfig struct {
	Path   string
	Bucket string
}

type IngestConfig struct {
	BootstrapDir     string
	BootstrapOnStart bool
	LiveDir          string
}

// PipelineConfig carries the batch schedule and the business-rule knobs that
// were asserted defaults in the source system; both thresholds and the
// vendor sentinel are deliberately configurable.
type PipelineConfig struct {
	Schedule           string
	RunTimeout         time.Duration
	LateArrivalDays    int
	ExtendedLateDays   int
	UnknownVendor      string
	ReportDir          string
	DimensionStartYear int
	DimensionEndYear   int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "order-reconciler"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Warehouse: WarehouseConfig{
			URL:             os.Getenv("WAREHOUSE_URL"),
			Host:            getString("WAREHOUSE_HOST", "localhost"),
			Port:            getString("WAREHOUSE_PORT", "5432"),
			Name:            getString("WAREHOUSE_DB", "analytics"),
			User:            getString("WAREHOUSE_USER", "analytics_user"),
			Password:        os.Getenv("WAREHOUSE_PASSWORD"),
			MaxOpenConns:    getInt("WAREHOUSE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("WAREHOUSE_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("WAREHOUSE_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("WAREHOUSE_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			CacheTTL: getDuration("IDENTITY_CACHE_TTL", 30*24*time.Hour),
		},
		RawStore: RawStoreConfig{
			Path:   getString("BOLTDB_PATH", "./data/events_raw.db"),
			Bucket: getString("BOLTDB_BUCKET", "events_raw"),
		},
		Ingest: IngestConfig{
			BootstrapDir:     getString("BOOTSTRAP_DIR", "./data/bootstrap"),
			BootstrapOnStart: getBool("BOOTSTRAP_ON_START", false),
			LiveDir:          getString("LIVE_EVENTS_DIR", "./data/live_events"),
		},
		Pipeline: PipelineConfig{
			Schedule:           getString("PIPELINE_SCHEDULE", "@daily"),
			RunTimeout:         getDuration("PIPELINE_RUN_TIMEOUT", 15*time.Minute),
			LateArrivalDays:    getInt("LATE_ARRIVAL_DAYS", 7),
			ExtendedLateDays:   getInt("EXTENDED_LATE_DAYS", 30),
			UnknownVendor:      getString("UNKNOWN_VENDOR", "unknown"),
			ReportDir:          getString("REPORT_DIR", "./reports"),
			DimensionStartYear: getInt("DIM_DATE_START_YEAR", 2023),
			DimensionEndYear:   getInt("DIM_DATE_END_YEAR", 2026),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Warehouse.URL == "" {
		cfg.Warehouse.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Warehouse.User,
		cfg.Warehouse.Password,
		cfg.Warehouse.Host,
		cfg.Warehouse.Port,
		cfg.Warehouse.Name,
		cfg.Warehouse.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
