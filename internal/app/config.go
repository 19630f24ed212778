package app

import (
	"club-backend/internal/config"
	"club-backend/internal/repository/db"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
}

// NewConfig creates a new application configuration
func NewConfig(database db.Database, appConfig *config.AppConfig) *Config {
	return &Config{
		DB:        database,
		AppConfig: appConfig,
	}
}

// Club returns the club profile shared by the prompt context and canned replies
func (c *Config) Club() *config.ClubProfile {
	return c.AppConfig.Club
}

// Chatbot returns the completion and prompt settings
func (c *Config) Chatbot() config.ChatbotConfig {
	return c.AppConfig.Chatbot
}
