package config

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/harun/logstream/pkg/access"
)

// Config represents the logstream configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Tail
	Tail TailConfig `json:"tail" mapstructure:"tail"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds WebSocket listener configuration
type ServerConfig struct {
	Host              string        `json:"host" mapstructure:"host"`
	Port              int           `json:"port" mapstructure:"port"`
	WriteTimeout      time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ReadLimit         int64         `json:"read_limit" mapstructure:"read_limit"` // bytes per inbound message
	ConnectsPerMinute int           `json:"connects_per_minute" mapstructure:"connects_per_minute"`
	MaxSessionsPerIP  int           `json:"max_sessions_per_ip" mapstructure:"max_sessions_per_ip"`
}

// TailConfig holds log access and streaming configuration
type TailConfig struct {
	BaseDir           string        `json:"base_dir" mapstructure:"base_dir"`
	AllowedRoots      []string      `json:"allowed_roots" mapstructure:"allowed_roots"`
	NumLines          int           `json:"num_lines" mapstructure:"num_lines"`
	PollInterval      time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `json:"heartbeat_timeout" mapstructure:"heartbeat_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8765,
			WriteTimeout:      10 * time.Second,
			ReadLimit:         4096,
			ConnectsPerMinute: 60,
			MaxSessionsPerIP:  10,
		},
		Tail: TailConfig{
			BaseDir:           ".",
			AllowedRoots:      []string{},
			NumLines:          1000,
			PollInterval:      time.Second,
			HeartbeatInterval: 15 * time.Second,
			HeartbeatTimeout:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}

// AddRoots appends allowed roots, skipping ones already configured.
func (c *Config) AddRoots(roots ...string) {
	seen := make(map[string]struct{}, len(c.Tail.AllowedRoots))
	for _, root := range c.Tail.AllowedRoots {
		seen[root] = struct{}{}
	}
	for _, root := range roots {
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		c.Tail.AllowedRoots = append(c.Tail.AllowedRoots, root)
	}
}

// Roots builds the immutable root set used to validate requests.
func (c *Config) Roots() (*access.Roots, error) {
	return access.NewRoots(c.Tail.BaseDir, c.Tail.AllowedRoots...)
}
