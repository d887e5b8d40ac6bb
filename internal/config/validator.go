package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePort validates a listen port
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateHost validates a listen host. An empty host listens on all
// interfaces.
func (v *Validator) ValidateHost(host string) error {
	if host == "" || host == "localhost" {
		return nil
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if strings.ContainsAny(host, " /:") {
		return fmt.Errorf("invalid host: %q", host)
	}
	return nil
}

// ValidatePositive validates that a named integer setting is positive
func (v *Validator) ValidatePositive(name string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, value)
	}
	return nil
}

// ValidateDuration validates that a named interval is positive
func (v *Validator) ValidateDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

// ValidateRoots validates the allowed root list
func (v *Validator) ValidateRoots(roots []string) error {
	for _, root := range roots {
		if strings.TrimSpace(root) != "" {
			return nil
		}
	}
	return fmt.Errorf("at least one allowed root is required (tail.allowed_roots or --prefix)")
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Server
	add(v.ValidateHost(cfg.Server.Host))
	add(v.ValidatePort(cfg.Server.Port))
	add(v.ValidateDuration("server.write_timeout", cfg.Server.WriteTimeout))
	add(v.ValidatePositive("server.read_limit", int(cfg.Server.ReadLimit)))
	add(v.ValidatePositive("server.connects_per_minute", cfg.Server.ConnectsPerMinute))
	add(v.ValidatePositive("server.max_sessions_per_ip", cfg.Server.MaxSessionsPerIP))

	// Tail
	add(v.ValidateRoots(cfg.Tail.AllowedRoots))
	add(v.ValidatePositive("tail.num_lines", cfg.Tail.NumLines))
	add(v.ValidateDuration("tail.poll_interval", cfg.Tail.PollInterval))
	add(v.ValidateDuration("tail.heartbeat_interval", cfg.Tail.HeartbeatInterval))
	add(v.ValidateDuration("tail.heartbeat_timeout", cfg.Tail.HeartbeatTimeout))

	// Logging
	add(v.ValidateLogLevel(cfg.Logging.Level))
	if cfg.Logging.MaxSize < 0 {
		add(fmt.Errorf("logging.max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		add(fmt.Errorf("logging.max_age must be >= 0"))
	}

	return errs
}
