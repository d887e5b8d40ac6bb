package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePort(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidatePort(8765))
	assert.NoError(t, v.ValidatePort(65535))
	assert.Error(t, v.ValidatePort(0))
	assert.Error(t, v.ValidatePort(-1))
	assert.Error(t, v.ValidatePort(70000))
}

func TestValidateHost(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		host    string
		wantErr bool
	}{
		{"", false},
		{"localhost", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"logs.internal", false},
		{"bad host", true},
		{"http://x", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := v.ValidateHost(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRoots(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateRoots([]string{"/var/log"}))
	assert.NoError(t, v.ValidateRoots([]string{" ", "/var/log"}))
	assert.Error(t, v.ValidateRoots(nil))
	assert.Error(t, v.ValidateRoots([]string{"", "  "}))
}

func TestValidateDuration(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateDuration("tail.poll_interval", time.Second))

	err := v.ValidateDuration("tail.poll_interval", -time.Second)
	assert.EqualError(t, err, "tail.poll_interval must be positive, got -1s")
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level), level)
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tail.AllowedRoots = []string{"/var/log"}
		assert.Empty(t, v.ValidateConfig(cfg))
	})

	t.Run("negative rotation settings", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tail.AllowedRoots = []string{"/var/log"}
		cfg.Logging.MaxSize = -1
		cfg.Logging.MaxAge = -1

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 2)
	})

	t.Run("server limits", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tail.AllowedRoots = []string{"/var/log"}
		cfg.Server.ReadLimit = 0
		cfg.Server.MaxSessionsPerIP = 0

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 2)
	})
}
