package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadOptions represents options for loading configuration
type LoadOptions struct {
	Path string
}

// Load loads configuration from defaults, an optional file, and
// environment variables, in that order of precedence.
func Load(opts ...LoadOptions) (*Config, error) {
	cfg := Default()

	var options LoadOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.Path != "" {
		if err := loadFromFile(cfg, options.Path); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if host := os.Getenv("MERCURY_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("MERCURY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if ssl := os.Getenv("MERCURY_SERVER_SSL"); ssl != "" {
		if b, err := strconv.ParseBool(ssl); err == nil {
			cfg.Server.SSL = b
		}
	}
	if lenient := os.Getenv("MERCURY_SERVER_ACCEPT_ALL_CERTS"); lenient != "" {
		if b, err := strconv.ParseBool(lenient); err == nil {
			cfg.Server.AcceptAllCerts = b
		}
	}
	if wsURL := os.Getenv("MERCURY_SERVER_WEBSOCKET_URL"); wsURL != "" {
		cfg.Server.WebSocketURL = wsURL
	}

	if level := os.Getenv("MERCURY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("MERCURY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if addr := os.Getenv("MERCURY_MONITOR_ADDR"); addr != "" {
		cfg.Monitor.Addr = addr
	}
}

// joinHostPort formats a host:port address.
func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a new configuration error
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s': %s", e.Field, e.Message)
}
