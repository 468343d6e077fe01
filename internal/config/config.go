package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server   Server
	Database Database
}

type Server struct {
	Address string
}

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// Enabled gates the game-history collaborator; with it off the
	// server runs purely in memory.
	Enabled bool
}

// Load reads configuration from the environment, falling back to
// development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Address: getEnv("SERVER_ADDR", ":8080"),
		},
		Database: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "investquest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Enabled:  getEnv("HISTORY_ENABLED", "true") == "true",
		},
	}

	portStr := getEnv("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %v", err)
	}
	cfg.Database.Port = port

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
