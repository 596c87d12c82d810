package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	S3       S3Config
	JWT      JWTConfig
	Firebase FirebaseConfig
	OTEL     OTELConfig
	Outbox   OutboxConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	BodyLimitKB int
}

// BackendConfig points at the workout backend REST API
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// MongoDBConfig holds MongoDB connection configuration. Only the outbox uses it.
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config holds the object store used for session archives; empty Endpoint disables it
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// JWTConfig holds the bearer token secret
type JWTConfig struct {
	Secret string
}

// FirebaseConfig holds Firebase Admin SDK configuration. When set, Firebase
// ID tokens are accepted instead of JWTs.
type FirebaseConfig struct {
	ProjectID   string
	PrivateKey  string // Base64 encoded
	ClientEmail string
}

// OTELConfig holds OpenTelemetry export configuration
type OTELConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	InstanceID     string
	Token          string
}

// OutboxConfig controls replay of failed backend writes
type OutboxConfig struct {
	Enabled     bool
	Interval    time.Duration
	MaxAttempts int

	// Operators may trigger a replay over HTTP; a replay covers every user's writes
	Operators []string
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string
	Format string // text or json
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadBackend reads only what a backend client needs; tools that serve no
// HTTP API use it instead of Load
func LoadBackend() (*BackendConfig, error) {
	cfg := read()
	if err := cfg.validateBackend(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg.Backend, nil
}

func read() *Config {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			BodyLimitKB: getEnvAsInt("BODY_LIMIT_KB", 64),
		},
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:8000"),
			Timeout: time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", ""),
			Database: getEnv("MONGODB_DATABASE", "liftlog"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", "liftlog-sessions"),
			AccessKey: getEnv("S3_ACCESS_KEY", "any"),
			SecretKey: getEnv("S3_SECRET_KEY", "any"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
			PrivateKey:  getEnv("FIREBASE_PRIVATE_KEY", ""),
			ClientEmail: getEnv("FIREBASE_CLIENT_EMAIL", ""),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "liftlog"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("OTEL_ENVIRONMENT", "development"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
		},
		Outbox: OutboxConfig{
			Enabled:     getEnvAsBool("OUTBOX_ENABLED", true),
			Interval:    time.Duration(getEnvAsInt("OUTBOX_INTERVAL_SECONDS", 60)) * time.Second,
			MaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
			Operators:   getEnvAsList("OUTBOX_OPERATORS"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if c.JWT.Secret == "" && !c.FirebaseEnabled() {
		return fmt.Errorf("JWT_SECRET is required unless Firebase is configured")
	}
	if c.Firebase.ProjectID != "" && (c.Firebase.PrivateKey == "" || c.Firebase.ClientEmail == "") {
		return fmt.Errorf("FIREBASE_PRIVATE_KEY and FIREBASE_CLIENT_EMAIL are required with FIREBASE_PROJECT_ID")
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	}
	if c.Outbox.Enabled && c.Outbox.Interval <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL_SECONDS must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// FirebaseEnabled reports whether Firebase authentication is configured
func (c *Config) FirebaseEnabled() bool {
	return c.Firebase.ProjectID != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping empty items
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
