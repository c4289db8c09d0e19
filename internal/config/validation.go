package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// ErrNoInstances is returned by RequireInstances when nothing is enabled
var ErrNoInstances = errors.New("at least one enabled instance must be configured")

// Validate checks the configuration for errors and inconsistencies.
// Instances are optional here because the frame commands work offline.
func (c *Config) Validate() error {
	if err := c.validateGeneral(); err != nil {
		return fmt.Errorf("general config: %w", err)
	}

	if err := c.validateFrames(); err != nil {
		return fmt.Errorf("frames config: %w", err)
	}

	if err := c.validateHTTP(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.validateJobs(); err != nil {
		return fmt.Errorf("jobs config: %w", err)
	}

	if err := c.validateInstances(); err != nil {
		return fmt.Errorf("instances: %w", err)
	}

	return nil
}

// RequireInstances fails unless at least one instance is enabled
func (c *Config) RequireInstances() error {
	if len(c.EnabledInstances()) == 0 {
		return ErrNoInstances
	}
	return nil
}

func (c *Config) validateGeneral() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !isValidChoice(c.General.LogLevel, validLogLevels) {
		return fmt.Errorf("log_level must be one of: %s", strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"auto", "json", "text"}
	if !isValidChoice(c.General.LogFormat, validFormats) {
		return fmt.Errorf("log_format must be one of: %s", strings.Join(validFormats, ", "))
	}

	if c.General.Timer < 1*time.Minute {
		return fmt.Errorf("timer must be at least 1 minute")
	}
	if c.General.Timer > 24*time.Hour {
		return fmt.Errorf("timer must not exceed 24 hours")
	}

	if c.General.RequestTimeout < 1*time.Second {
		return fmt.Errorf("request_timeout must be at least 1 second")
	}
	if c.General.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request_timeout must not exceed 5 minutes")
	}

	validJobs := []string{JobFramesAudit, JobRedisKeyCleanup}
	for _, name := range c.General.DebugJobs {
		if !isValidChoice(name, validJobs) {
			return fmt.Errorf("debug_jobs: unknown job %q (want one of: %s)", name, strings.Join(validJobs, ", "))
		}
	}

	return nil
}

func (c *Config) validateFrames() error {
	if _, err := framelist.ParseOrdering(c.Frames.Ordering); err != nil {
		return err
	}
	if c.Frames.MaxFrames < 0 {
		return fmt.Errorf("max_frames cannot be negative")
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if !c.HTTP.Enabled {
		return nil
	}
	if c.HTTP.Listen == "" {
		return fmt.Errorf("listen address is required when the http api is enabled")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}
	return nil
}

func (c *Config) validateJobs() error {
	cleanup := c.Jobs.RedisKeyCleanup
	if !cleanup.Enabled {
		return nil
	}

	if cleanup.Mode != KeyDeleteOnJobDelete && cleanup.Mode != KeyDeleteOnJobPurge {
		return fmt.Errorf("redis_key_cleanup.mode must be one of: %s, %s", KeyDeleteOnJobDelete, KeyDeleteOnJobPurge)
	}
	if cleanup.EnvKey == "" {
		return fmt.Errorf("redis_key_cleanup.env_key is required")
	}
	if cleanup.LedgerMaxAge < 0 {
		return fmt.Errorf("redis_key_cleanup.ledger_max_age cannot be negative")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis_key_cleanup requires redis.addr")
	}

	return nil
}

func (c *Config) validateInstances() error {
	instanceNames := make(map[string]bool)

	for _, instance := range c.Instances {
		if instance.Name == "" {
			return fmt.Errorf("instance must have a name")
		}

		if instanceNames[instance.Name] {
			return fmt.Errorf("duplicate instance name: %s", instance.Name)
		}
		instanceNames[instance.Name] = true

		if instance.URL == "" {
			return fmt.Errorf("instance '%s': URL is required", instance.Name)
		}
		if !strings.HasPrefix(instance.URL, "http://") && !strings.HasPrefix(instance.URL, "https://") {
			return fmt.Errorf("instance '%s': URL must start with http:// or https://", instance.Name)
		}

		if instance.Password != "" && instance.Username == "" {
			return fmt.Errorf("instance '%s': password set without username", instance.Name)
		}
	}

	return nil
}

// isValidChoice checks if a value is in a list of valid choices
func isValidChoice(value string, choices []string) bool {
	value = strings.ToLower(value)
	for _, choice := range choices {
		if value == choice {
			return true
		}
	}
	return false
}
