// Package config provides configuration for the MasterDom client.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client configuration.
type Config struct {
	// Backend settings
	APIBaseURL string `yaml:"api_base_url"`

	// Timeouts
	RequestTimeout time.Duration `yaml:"-"`

	// RequestTimeoutMS mirrors RequestTimeout for the config file.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`

	// Local state
	CredentialsDB string `yaml:"credentials_db"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from the optional config file and environment
// variables. Environment variables win over the file, the file over defaults.
func Load() *Config {
	cfg := &Config{
		APIBaseURL:       "http://localhost:8080",
		RequestTimeoutMS: 15000,
		CredentialsDB:    defaultCredentialsDB(),
		LogLevel:         "info",
	}

	if path := configFilePath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			// A malformed file is ignored; defaults still apply.
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	cfg.APIBaseURL = getEnv("MASTERDOM_API_URL", cfg.APIBaseURL)
	cfg.RequestTimeoutMS = getEnvInt("MASTERDOM_REQUEST_TIMEOUT_MS", cfg.RequestTimeoutMS)
	cfg.CredentialsDB = getEnv("MASTERDOM_CREDENTIALS_DB", cfg.CredentialsDB)
	cfg.LogLevel = getEnv("MASTERDOM_LOG_LEVEL", cfg.LogLevel)

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	return cfg
}

func configFilePath() string {
	if path := os.Getenv("MASTERDOM_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "masterdom", "config.yaml")
}

func defaultCredentialsDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "masterdom-credentials.db"
	}
	return filepath.Join(dir, "masterdom", "credentials.db")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
