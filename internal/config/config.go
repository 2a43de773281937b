package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Session cookie configuration
	Session SessionConfig

	// Attendance ledger configuration
	Attendance AttendanceConfig

	// Scanner device authentication
	Device DeviceConfig

	// Object storage for OTA firmware
	Storage StorageConfig

	// Attendance event queue
	Queue QueueConfig

	// Tracing configuration
	Tracing TracingConfig

	// Login rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string // development, staging, production
	LogLevel        string // debug, info, warn, error
	StaticDir       string // optional admin UI build directory
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// AttendanceConfig holds attendance recording configuration
type AttendanceConfig struct {
	Timezone     string        // zone used for the denormalized calendar fields
	DedupeWindow time.Duration // replay suppression window
	CompanyUUID  string        // stamped on every attendance row
}

// DeviceConfig holds scanner token configuration
type DeviceConfig struct {
	RequireAuth bool
	JWTSecret   string
	TokenExpiry time.Duration
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Bucket       string // empty disables OTA endpoints
	Region       string
	Endpoint     string // custom endpoint for R2, MinIO or LocalStack
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// QueueConfig holds attendance event queue configuration
type QueueConfig struct {
	AttendanceQueueURL string // empty disables publishing
	Region             string
	Endpoint           string
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool
	Exporter     string // "otlp" or "stdout"
	OTLPEndpoint string
	ServiceName  string
}

// RateLimitConfig holds login rate limiting configuration
type RateLimitConfig struct {
	MaxIdentifierFailures int
	IdentifierWindow      time.Duration
	MaxIPFailures         int
	IPWindow              time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	MinPasswordLen   int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			StaticDir:       getEnv("STATIC_DIR", ""),
			ReadTimeout:     time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT", 15)) * time.Second,
			WriteTimeout:    time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "AA_AUTH"),
			TTL:        time.Duration(getEnvAsInt("SESSION_TTL_SECONDS", 7*24*60*60)) * time.Second,
		},
		Attendance: AttendanceConfig{
			Timezone:     getEnv("ATTENDANCE_TIMEZONE", "UTC"),
			DedupeWindow: time.Duration(getEnvAsInt("ATTENDANCE_DEDUPE_WINDOW_SECONDS", 60)) * time.Second,
			CompanyUUID:  getEnv("COMPANY_UUID", "D7E1A3F4"),
		},
		Device: DeviceConfig{
			RequireAuth: getEnvAsBool("DEVICE_AUTH_REQUIRED", false),
			JWTSecret:   getEnv("DEVICE_JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("DEVICE_TOKEN_EXPIRY_DAYS", 365)) * 24 * time.Hour,
		},
		Storage: StorageConfig{
			Bucket:       getEnv("OTA_BUCKET", ""),
			Region:       getEnv("OTA_REGION", getEnv("AWS_REGION", "auto")),
			Endpoint:     getEnv("OTA_ENDPOINT", ""),
			AccessKey:    getEnv("OTA_ACCESS_KEY_ID", ""),
			SecretKey:    getEnv("OTA_SECRET_ACCESS_KEY", ""),
			UsePathStyle: getEnvAsBool("OTA_USE_PATH_STYLE", false),
		},
		Queue: QueueConfig{
			AttendanceQueueURL: getEnv("ATTENDANCE_EVENTS_QUEUE_URL", ""),
			Region:             getEnv("AWS_REGION", "us-east-1"),
			Endpoint:           getEnv("AWS_ENDPOINT", ""),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "otlp"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "autoattend-api"),
		},
		RateLimit: RateLimitConfig{
			MaxIdentifierFailures: getEnvAsInt("LOGIN_MAX_FAILURES", 5),
			IdentifierWindow:      time.Duration(getEnvAsInt("LOGIN_FAILURE_WINDOW_MINUTES", 15)) * time.Minute,
			MaxIPFailures:         getEnvAsInt("LOGIN_MAX_IP_FAILURES", 20),
			IPWindow:              time.Duration(getEnvAsInt("LOGIN_IP_WINDOW_MINUTES", 60)) * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			MinPasswordLen:   getEnvAsInt("MIN_PASSWORD_LENGTH", 8),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}

	if c.Attendance.DedupeWindow < 0 {
		return fmt.Errorf("ATTENDANCE_DEDUPE_WINDOW_SECONDS cannot be negative")
	}

	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", c.Attendance.Timezone, err)
	}

	// Device tokens are signed with this secret, so it is needed as soon as
	// scanners are required to authenticate.
	if c.Device.RequireAuth && c.Device.JWTSecret == "" {
		return fmt.Errorf("DEVICE_JWT_SECRET is required when DEVICE_AUTH_REQUIRED=true")
	}

	if c.Tracing.Enabled && c.Tracing.Exporter != "otlp" && c.Tracing.Exporter != "stdout" {
		return fmt.Errorf("invalid TRACING_EXPORTER: %s (must be 'otlp' or 'stdout')", c.Tracing.Exporter)
	}

	return nil
}

// Location returns the time zone used for attendance calendar fields.
// Validate has already rejected unknown zones, so UTC is only a fallback.
func (c AttendanceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OTAEnabled reports whether an object storage bucket is configured
func (c StorageConfig) OTAEnabled() bool {
	return c.Bucket != ""
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
