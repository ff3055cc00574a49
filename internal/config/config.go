// Package config loads service configuration from the environment.
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

// Cache drivers.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Cache    CacheConfig
	Security SecurityConfig
	Logging  LoggingConfig
	SeedDemo bool
}

// DatabaseConfig holds the connection string and pool sizing.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ServerConfig holds HTTP server settings. RequestTimeout bounds every request,
// including the wait for a pooled connection.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig selects and sizes the cache backend.
type CacheConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Capacity      int
}

// SecurityConfig holds token settings.
type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from the environment. Files named in envFiles are
// loaded first when present; variables already set are not overridden.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	loaders := []struct {
		name string
		load func() error
	}{
		{"database", cfg.loadDatabase},
		{"server", cfg.loadServer},
		{"cache", cfg.loadCache},
		{"security", cfg.loadSecurity},
	}
	for _, l := range loaders {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("load %s config: %w", l.name, err)
		}
	}
	cfg.loadLogging()

	seed, err := envBool("SEED_DEMO", false)
	if err != nil {
		return nil, err
	}
	cfg.SeedDemo = seed

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools such as the
// migrator that do not serve requests.
func LoadDatabase(envFiles ...string) (DatabaseConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return DatabaseConfig{}, err
	}

	var cfg Config
	if err := cfg.loadDatabase(); err != nil {
		return DatabaseConfig{}, fmt.Errorf("load database config: %w", err)
	}
	if cfg.Database.URL == "" {
		return DatabaseConfig{}, errors.New("DATABASE_URL is required (or PGUSER, PGDATABASE)")
	}
	return cfg.Database, nil
}

func loadEnvFiles(files []string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) loadDatabase() error {
	var err error
	if c.Database.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return err
	}
	if c.Database.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return err
	}
	if c.Database.ConnMaxLifetime, err = envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return err
	}
	if c.Database.ConnMaxIdleTime, err = envDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute); err != nil {
		return err
	}

	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = envOrDefault("PGHOST", "localhost")
	c.Database.User = os.Getenv("PGUSER")
	c.Database.Password = os.Getenv("PGPASSWORD")
	c.Database.Name = os.Getenv("PGDATABASE")
	c.Database.SSLMode = envOrDefault("PGSSLMODE", "disable")
	if c.Database.Port, err = envInt("PGPORT", 5432); err != nil {
		return err
	}

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	var err error
	c.Server.Host = envOrDefault("HOST", "0.0.0.0")
	if c.Server.Port, err = envInt("PORT", 5000); err != nil {
		return err
	}
	if c.Server.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return err
	}
	c.Server.AllowedOrigins = parseAllowedOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))
	return nil
}

func (c *Config) loadCache() error {
	var err error
	c.Cache.Driver = strings.ToLower(envOrDefault("CACHE_DRIVER", CacheRedis))
	c.Cache.RedisAddr = envOrDefault("REDIS_SERVER", "localhost:6379")
	c.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")
	c.Cache.Prefix = os.Getenv("CACHE_PREFIX")
	if c.Cache.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return err
	}
	if c.Cache.TTL, err = envDuration("CACHE_TTL", 30*time.Minute); err != nil {
		return err
	}
	if c.Cache.Capacity, err = envInt("CACHE_CAPACITY", 10000); err != nil {
		return err
	}
	return nil
}

func (c *Config) loadSecurity() error {
	var err error
	c.Security.JWTSecret = os.Getenv("ACCESS_TOKEN_KEY")
	if c.Security.TokenTTL, err = envDuration("ACCESS_TOKEN_AGE", 3*time.Hour); err != nil {
		return err
	}
	return nil
}

func (c *Config) loadLogging() {
	c.Logging.Level = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	c.Logging.Format = strings.ToLower(envOrDefault("LOG_FORMAT", "json"))
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required (or PGUSER, PGDATABASE)")
	}
	if c.Database.MaxOpenConns < 1 {
		problems = append(problems, "DB_MAX_OPEN_CONNS must be positive")
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		problems = append(problems, "DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT must be positive")
	}

	switch c.Cache.Driver {
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "REDIS_SERVER is required for the redis cache")
		}
	case CacheMemory:
		if c.Cache.Capacity < 1 {
			problems = append(problems, "CACHE_CAPACITY must be positive")
		}
	default:
		problems = append(problems, "CACHE_DRIVER must be one of: redis, memory")
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}

	if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "ACCESS_TOKEN_KEY must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_AGE must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseAllowedOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// envDuration accepts Go durations ("90s") and bare integers, read as seconds.
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
