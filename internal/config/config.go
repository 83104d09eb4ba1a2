package config

import (
	"net/url"

	"github.com/mercuryirc/mercury/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig   `json:"server" yaml:"server"`
	Monitor MonitorConfig  `json:"monitor" yaml:"monitor"`
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig describes the IRC server a connection dials. The
// connection only reads it; it is never mutated by protocol traffic.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	SSL  bool   `json:"ssl" yaml:"ssl"`

	// AcceptAllCerts disables certificate and hostname verification
	// entirely. Opt-in only, for self-signed test servers.
	AcceptAllCerts bool `json:"accept_all_certs" yaml:"accept_all_certs"`

	// WebSocketURL, when set, connects through an IRC-over-WebSocket
	// gateway at this ws:// or wss:// URL instead of a raw socket.
	WebSocketURL string `json:"websocket_url,omitempty" yaml:"websocket_url,omitempty"`
}

// Addr returns the host:port dial address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// MonitorConfig represents the debug monitor configuration
type MonitorConfig struct {
	// Addr is the listen address for the status endpoint; empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 6667,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.WebSocketURL != "" {
		u, err := url.Parse(c.Server.WebSocketURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return NewConfigError("server.websocket_url", "must be a ws:// or wss:// URL")
		}
		return nil
	}

	if c.Server.Host == "" {
		return NewConfigError("server.host", "host is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigError("server.port", "invalid port number")
	}

	return nil
}
