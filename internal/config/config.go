package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	NATS     NATSConfig
	Contract ContractConfig
	Log      LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	TestDBName string // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
}

// NATSConfig configures the notification bridge. An empty URL disables
// publishing and events are only logged.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// ContractConfig tunes the contract lifecycle
type ContractConfig struct {
	StoreTimeout          time.Duration
	ExpiryWindow          time.Duration
	AllowWitnessNameMatch bool
}

// LogConfig controls the zerolog output
type LogConfig struct {
	Level  string
	Pretty bool
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			Username:   getEnv("DB_USERNAME", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			DBName:     getEnv("DB_NAME", "contracts"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			TestDBName: getEnv("TEST_DB_NAME", "contracts_test"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-here"),
			TokenDuration: getEnvAsDuration("JWT_TOKEN_DURATION", 24*time.Hour),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "contracts"),
		},
		Contract: ContractConfig{
			StoreTimeout:          getEnvAsDuration("CONTRACT_STORE_TIMEOUT", 5*time.Second),
			ExpiryWindow:          getEnvAsDuration("CONTRACT_EXPIRY_WINDOW", 30*24*time.Hour),
			AllowWitnessNameMatch: getEnvAsBool("CONTRACT_WITNESS_NAME_MATCH", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
