package config

import (
	"club-backend/internal/logger"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chatbot   ChatbotConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Club      *ClubProfile
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// ChatbotConfig holds completion backend and prompt configuration
type ChatbotConfig struct {
	Provider        string
	APIKey          string
	Model           string
	APIBaseURL      string
	Timeout         time.Duration
	SystemPrompt    string
	UseClubContext  bool
	FrontendBaseURL string
}

// AuthConfig holds bearer token verification settings.
// An empty secret disables verification entirely.
type AuthConfig struct {
	JWTSecret []byte
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	ExportDir   string
	ServiceName string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	config.Server = ServerConfig{
		Port:           getEnvOrDefault("SERVER_PORT", "8000"),
		RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		}),
	}

	config.Database = DatabaseConfig{
		Driver:     getEnvOrDefault("DB_DRIVER", DriverPostgres),
		Host:       getEnvOrDefault("DB_HOST", "postgres"),
		Port:       getEnvOrDefault("DB_PORT", "5432"),
		User:       getEnvOrDefault("DB_USER", "postgres"),
		Password:   getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:       getEnvOrDefault("DB_NAME", "club"),
		SSLMode:    getEnvOrDefault("DB_SSLMODE", "disable"),
		SQLitePath: getEnvOrDefault("DB_SQLITE_PATH", "club.db"),
	}
	if config.Database.Driver != DriverPostgres && config.Database.Driver != DriverSQLite {
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, config.Database.Driver)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Log.Warn("OPENAI_API_KEY environment variable not set, chatbot will use canned replies")
	}

	config.Chatbot = ChatbotConfig{
		Provider:        getEnvOrDefault("CHATBOT_PROVIDER", "openai"),
		APIKey:          apiKey,
		Model:           getEnvOrDefault("CHATBOT_MODEL", "gpt-3.5-turbo"),
		APIBaseURL:      os.Getenv("CHATBOT_API_BASE_URL"),
		Timeout:         getEnvAsDuration("CHATBOT_TIMEOUT", 30*time.Second),
		SystemPrompt:    os.Getenv("CHATBOT_SYSTEM_PROMPT"),
		UseClubContext:  getEnvAsBool("CHATBOT_USE_CLUB_CONTEXT", true),
		FrontendBaseURL: getEnvOrDefault("FRONTEND_BASE_URL", "http://localhost:5173"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret != "" && len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}
	if jwtSecret != "" {
		config.Auth.JWTSecret = []byte(jwtSecret)
	}

	config.Telemetry = TelemetryConfig{
		ExportDir:   os.Getenv("OTEL_EXPORT_DIR"),
		ServiceName: getEnvOrDefault("OTEL_SERVICE_NAME", "club-backend"),
	}

	club := DefaultClubProfile()
	if path := os.Getenv("CLUB_PROFILE_PATH"); path != "" {
		loaded, err := NewClubProfile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load club profile: %w", err)
		}
		club = loaded
	}
	config.Club = club

	return config, nil
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath + "?_foreign_keys=on"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
