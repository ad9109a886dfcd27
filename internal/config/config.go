package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-geofence-go/internal/domain/geofence"
	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Storage    StorageConfig
	Geofence   GeofenceConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type StorageConfig struct {
	BasePath string
	BaseURL  string
}

type GeofenceConfig struct {
	IndoorLeniency    bool
	HistoryMaxSamples int
	HistoryMaxAge     time.Duration
}

type AttendanceConfig struct {
	PolicyFile           string
	AutoCheckoutInterval time.Duration
	HistoryPruneInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "attendance"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Storage = StorageConfig{
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
	}

	// Geofence configuration
	indoorLeniency, err := strconv.ParseBool(getEnv("GEOFENCE_INDOOR_LENIENCY", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOFENCE_INDOOR_LENIENCY: %w", err)
	}

	historyMaxSamples, err := strconv.Atoi(getEnv("HISTORY_MAX_SAMPLES", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_MAX_SAMPLES: %w", err)
	}

	historyMaxAge, err := time.ParseDuration(getEnv("HISTORY_MAX_AGE", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_MAX_AGE: %w", err)
	}

	config.Geofence = GeofenceConfig{
		IndoorLeniency:    indoorLeniency,
		HistoryMaxSamples: historyMaxSamples,
		HistoryMaxAge:     historyMaxAge,
	}

	// Attendance configuration
	autoCheckoutInterval, err := time.ParseDuration(getEnv("AUTO_CHECKOUT_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_CHECKOUT_INTERVAL: %w", err)
	}

	historyPruneInterval, err := time.ParseDuration(getEnv("HISTORY_PRUNE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_PRUNE_INTERVAL: %w", err)
	}

	config.Attendance = AttendanceConfig{
		PolicyFile:           getEnv("DEPARTMENT_POLICY_FILE", "config/departments.yaml"),
		AutoCheckoutInterval: autoCheckoutInterval,
		HistoryPruneInterval: historyPruneInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Attendance.PolicyFile == "" {
		return fmt.Errorf("DEPARTMENT_POLICY_FILE is required")
	}
	if c.Geofence.HistoryMaxSamples < 1 {
		return fmt.Errorf("HISTORY_MAX_SAMPLES must be at least 1")
	}
	if c.Geofence.HistoryMaxAge <= 0 {
		return fmt.Errorf("HISTORY_MAX_AGE must be positive")
	}
	if c.Attendance.AutoCheckoutInterval <= 0 {
		return fmt.Errorf("AUTO_CHECKOUT_INTERVAL must be positive")
	}
	if c.Attendance.HistoryPruneInterval <= 0 {
		return fmt.Errorf("HISTORY_PRUNE_INTERVAL must be positive")
	}
	return c.Thresholds().Validate()
}

// Thresholds returns the geofence thresholds with the configured overrides.
func (c *Config) Thresholds() geofence.Thresholds {
	t := geofence.DefaultThresholds()
	t.IndoorLeniencyEnabled = c.Geofence.IndoorLeniency
	return t
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
