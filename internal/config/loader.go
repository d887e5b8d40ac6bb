package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix      = "LOGSTREAM"
	configDirName  = ".logstream"
	configFileName = "logstream.json"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader. An empty path selects
// ~/.logstream/logstream.json.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load reads the config file, if present, and applies LOGSTREAM_* environment
// overrides on top of the defaults. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Tail.AllowedRoots == nil {
		cfg.Tail.AllowedRoots = []string{}
	}

	return cfg, nil
}

// setDefaults registers every field so that environment overrides reach
// nested keys even when the file does not mention them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.read_limit", cfg.Server.ReadLimit)
	v.SetDefault("server.connects_per_minute", cfg.Server.ConnectsPerMinute)
	v.SetDefault("server.max_sessions_per_ip", cfg.Server.MaxSessionsPerIP)

	v.SetDefault("tail.base_dir", cfg.Tail.BaseDir)
	v.SetDefault("tail.allowed_roots", cfg.Tail.AllowedRoots)
	v.SetDefault("tail.num_lines", cfg.Tail.NumLines)
	v.SetDefault("tail.poll_interval", cfg.Tail.PollInterval)
	v.SetDefault("tail.heartbeat_interval", cfg.Tail.HeartbeatInterval)
	v.SetDefault("tail.heartbeat_timeout", cfg.Tail.HeartbeatTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)
}

// Save writes the configuration to the loader's path, creating the
// directory if needed. Durations are written in their string form.
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", map[string]interface{}{
		"host":                cfg.Server.Host,
		"port":                cfg.Server.Port,
		"write_timeout":       cfg.Server.WriteTimeout.String(),
		"read_limit":          cfg.Server.ReadLimit,
		"connects_per_minute": cfg.Server.ConnectsPerMinute,
		"max_sessions_per_ip": cfg.Server.MaxSessionsPerIP,
	})
	v.Set("tail", map[string]interface{}{
		"base_dir":           cfg.Tail.BaseDir,
		"allowed_roots":      cfg.Tail.AllowedRoots,
		"num_lines":          cfg.Tail.NumLines,
		"poll_interval":      cfg.Tail.PollInterval.String(),
		"heartbeat_interval": cfg.Tail.HeartbeatInterval.String(),
		"heartbeat_timeout":  cfg.Tail.HeartbeatTimeout.String(),
	})
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
