package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port               string
	DBPath             string
	LogLevel           string
	BackdateWindowDays int
	SweepSchedule      string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "paisabook.db"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 6 * * *"),
	}

	windowStr := getEnv("BACKDATE_WINDOW_DAYS", "7")
	window, err := strconv.Atoi(windowStr)
	if err != nil {
		return nil, fmt.Errorf("BACKDATE_WINDOW_DAYS must be an integer, got %q", windowStr)
	}
	if window < 0 {
		return nil, fmt.Errorf("BACKDATE_WINDOW_DAYS must not be negative, got %d", window)
	}
	cfg.BackdateWindowDays = window

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
