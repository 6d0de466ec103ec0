package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	Tesla    TeslaConfig    `json:"tesla"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `json:"path"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	APIKey string `json:"api_key"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// TeslaConfig contains Tesla API application credentials
type TeslaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	AuthBaseURL  string `json:"auth_base_url,omitempty"`
	APIBaseURL   string `json:"api_base_url,omitempty"`
}

// Enabled reports whether Tesla credentials are configured
func (c TeslaConfig) Enabled() bool {
	return c.ClientID != ""
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}

	if c.Security.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	if c.Tesla.Enabled() && c.Tesla.RedirectURI == "" {
		return fmt.Errorf("%w: Tesla redirect URI is required", ErrInvalidConfig)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables, reading a
// local .env file first when one exists. This is the path containerized
// deployments use.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("EVHUB_HOST", "0.0.0.0"),
			Port: getEnvInt("EVHUB_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("EVHUB_DB_PATH", "./evhub.db"),
		},
		Security: SecurityConfig{
			APIKey: getEnv("EVHUB_API_KEY", ""),
		},
		Logging: LoggingConfig{
			Format: getEnv("EVHUB_LOG_FORMAT", "json"),
			Level:  getEnv("EVHUB_LOG_LEVEL", "info"),
		},
		Tesla: TeslaConfig{
			ClientID:     getEnv("EVHUB_TESLA_CLIENT_ID", ""),
			ClientSecret: getEnv("EVHUB_TESLA_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("EVHUB_TESLA_REDIRECT_URI", ""),
			AuthBaseURL:  getEnv("EVHUB_TESLA_AUTH_BASE_URL", ""),
			APIBaseURL:   getEnv("EVHUB_TESLA_API_BASE_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
