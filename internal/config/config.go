package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Slack    SlackConfig
	Archive  ArchiveConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// live entry feed.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// AuthConfig holds the credentials this service validates. Token issuance
// and sessions belong to the surrounding application; only the shared JWT
// secret and the service principal key hashes live here.
type AuthConfig struct {
	JWTSecret string //nolint:gosec // G117: JWT verification secret config
	// ServiceKeys maps SHA-256 hex digests of API keys to service principal
	// names, parsed from "name:hash" pairs.
	ServiceKeys map[string]string
}

// SlackConfig holds alerting settings. An empty BotToken disables alerts.
type SlackConfig struct {
	BotToken     string
	AlertChannel string
}

// ArchiveConfig holds object storage settings for export artifacts. An empty
// Endpoint disables archiving.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string //nolint:gosec // G117: object store credential config
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("WAXSEAL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("WAXSEAL_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("WAXSEAL_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("WAXSEAL_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("WAXSEAL_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	archiveSSL, err := getEnvBool("WAXSEAL_ARCHIVE_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	serviceKeys, err := parseServiceKeys(getEnvList("WAXSEAL_SERVICE_KEYS", nil))
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("WAXSEAL_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("WAXSEAL_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("WAXSEAL_DB_USER", "waxseal"),
			Password: getEnv("WAXSEAL_DB_PASSWORD", ""),
			DBName:   getEnv("WAXSEAL_DB_NAME", "waxseal_dev"),
			SSLMode:  getEnv("WAXSEAL_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("WAXSEAL_REDIS_ADDR", ""),
			Password: getEnv("WAXSEAL_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("WAXSEAL_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("WAXSEAL_JWT_SECRET", ""),
			ServiceKeys: serviceKeys,
		},
		Slack: SlackConfig{
			BotToken:     getEnv("WAXSEAL_SLACK_BOT_TOKEN", ""),
			AlertChannel: getEnv("WAXSEAL_SLACK_ALERT_CHANNEL", ""),
		},
		Archive: ArchiveConfig{
			Endpoint:  getEnv("WAXSEAL_ARCHIVE_ENDPOINT", ""),
			AccessKey: getEnv("WAXSEAL_ARCHIVE_ACCESS_KEY", ""),
			SecretKey: getEnv("WAXSEAL_ARCHIVE_SECRET_KEY", ""),
			Bucket:    getEnv("WAXSEAL_ARCHIVE_BUCKET", "audit-exports"),
			UseSSL:    archiveSSL,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.Auth.JWTSecret == "" {
		return errors.New("WAXSEAL_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("WAXSEAL_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("WAXSEAL_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("WAXSEAL_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("WAXSEAL_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("WAXSEAL_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("WAXSEAL_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Slack.BotToken != "" && c.Slack.AlertChannel == "" {
		return errors.New("WAXSEAL_SLACK_ALERT_CHANNEL is required when the Slack bot token is set")
	}
	if c.Archive.Endpoint != "" {
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return errors.New("WAXSEAL_ARCHIVE_ACCESS_KEY and WAXSEAL_ARCHIVE_SECRET_KEY are required when the archive endpoint is set")
		}
		if strings.Contains(c.Archive.Endpoint, "://") {
			return fmt.Errorf("WAXSEAL_ARCHIVE_ENDPOINT must not include scheme: %q", c.Archive.Endpoint)
		}
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// parseServiceKeys parses "name:sha256hex" pairs into a hash -> name map.
func parseServiceKeys(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	keys := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, hash, ok := strings.Cut(pair, ":")
		if !ok || name == "" || len(hash) != 64 {
			return nil, fmt.Errorf("WAXSEAL_SERVICE_KEYS entry %q must be name:sha256hex", pair)
		}
		keys[strings.ToLower(hash)] = name
	}
	return keys, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
