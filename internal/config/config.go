package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MetricsPath    string        `mapstructure:"metrics_path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	BreakerOpen  time.Duration `mapstructure:"breaker_open"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// Catalog sources
const (
	CatalogSourceStatic   = "static"
	CatalogSourcePostgres = "postgres"
	CatalogSourceSupabase = "supabase"
)

type CatalogConfig struct {
	Source          string         `mapstructure:"source"`
	CacheTTL        time.Duration  `mapstructure:"cache_ttl"`
	CleanupInterval time.Duration  `mapstructure:"cleanup_interval"`
	MaxEntries      int            `mapstructure:"max_entries"`
	Supabase        SupabaseConfig `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Table   string        `mapstructure:"table"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Retention     time.Duration `mapstructure:"retention"`
	// HealthPort serves the worker's health and metrics endpoints.
	HealthPort    int           `mapstructure:"health_port"`
}

type AuditConfig struct {
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	// EncryptionKey enables at-rest encryption of snapshot payloads.
	EncryptionKey  string `mapstructure:"encryption_key"`
	EncryptionSalt string `mapstructure:"encryption_salt"`
}

// env holds the secrets and endpoints operators override per deployment.
type env struct {
	DBHost        string `envconfig:"DB_HOST"`
	DBPort        int    `envconfig:"DB_PORT"`
	DBUser        string `envconfig:"DB_USER"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME"`
	RedisURL      string `envconfig:"REDIS_URL"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
	SupabaseURL   string `envconfig:"SUPABASE_URL"`
	SupabaseKey   string `envconfig:"SUPABASE_KEY"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
}

// EnvPrefix prefixes every environment override, e.g. ODONTO_DB_HOST.
const EnvPrefix = "ODONTO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "odontogram")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "odontogram-events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.breaker_open", 30*time.Second)

	v.SetDefault("jwt.issuer", "odontogram-api")

	v.SetDefault("catalog.source", CatalogSourcePostgres)
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)
	v.SetDefault("catalog.cleanup_interval", 10*time.Minute)
	v.SetDefault("catalog.max_entries", 1024)
	v.SetDefault("catalog.supabase.table", "catalogo_condiciones")
	v.SetDefault("catalog.supabase.timeout", 5*time.Second)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("audit.retention", 365*24*time.Hour)
	v.SetDefault("audit.cleanup_interval", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
}

// LoadConfig reads path, or config.yaml from the usual locations when path
// is empty, then applies environment overrides. A missing config.yaml is not
// an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	override(&cfg.Database.Host, e.DBHost)
	override(&cfg.Database.User, e.DBUser)
	override(&cfg.Database.Password, e.DBPassword)
	override(&cfg.Database.Name, e.DBName)
	if e.DBPort != 0 {
		cfg.Database.Port = e.DBPort
	}
	override(&cfg.Redis.URL, e.RedisURL)
	override(&cfg.JWT.Secret, e.JWTSecret)
	override(&cfg.Security.EncryptionKey, e.EncryptionKey)
	override(&cfg.Catalog.Supabase.URL, e.SupabaseURL)
	override(&cfg.Catalog.Supabase.Key, e.SupabaseKey)
	override(&cfg.Log.Level, e.LogLevel)
	return nil
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSourceStatic, CatalogSourcePostgres:
	case CatalogSourceSupabase:
		if c.Catalog.Supabase.URL == "" || c.Catalog.Supabase.Key == "" {
			return fmt.Errorf("catalog source %q needs supabase url and key", c.Catalog.Source)
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if c.Security.EncryptionKey != "" && len(c.Security.EncryptionKey) < 32 {
		return errors.New("security.encryption_key must be at least 32 characters")
	}
	return nil
}
