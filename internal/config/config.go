package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Pricing  PricingConfig
	RPC      RPCConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret     string
	InvitationTTL time.Duration
}

// PricingConfig holds the pricing constants that are deployment-specific.
// The yield factor is the assumed full-year generation per installed kWp.
type PricingConfig struct {
	YieldKWhPerKWp float64
	MaxSizeKWp     float64
	PriceCacheTTL  time.Duration
}

// RPCConfig holds settings for the serverless function endpoint
type RPCConfig struct {
	BaseURL string
	APIKey  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "carbon_broker"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			InvitationTTL: getEnvDuration("INVITATION_TTL", 14*24*time.Hour),
		},
		Pricing: PricingConfig{
			YieldKWhPerKWp: getEnvFloat("ANNUAL_YIELD_KWH_PER_KWP", 1400),
			MaxSizeKWp:     getEnvFloat("MAX_INSTALLATION_KWP", 50000),
			PriceCacheTTL:  getEnvDuration("PRICE_CACHE_TTL", 10*time.Minute),
		},
		RPC: RPCConfig{
			BaseURL: getEnv("FUNCTIONS_BASE_URL", ""),
			APIKey:  getEnv("FUNCTIONS_API_KEY", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Pricing.YieldKWhPerKWp <= 0 {
		return nil, fmt.Errorf("ANNUAL_YIELD_KWH_PER_KWP must be positive")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvFloat gets a float environment variable with a fallback default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvDuration gets a duration environment variable with a fallback default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
