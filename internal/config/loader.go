package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DEADLINEJOB_GENERAL_TEST_RUN
const EnvPrefix = "DEADLINEJOB"

// DefaultPaths are tried in order when no config file is given
var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/deadlinejob/config.yaml"}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configPath == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	// Without a file the defaults and env vars apply
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "auto")
	v.SetDefault("general.test_run", false)
	v.SetDefault("general.timer", 5*time.Minute)
	v.SetDefault("general.ssl_verification", true)
	v.SetDefault("general.request_timeout", 30*time.Second)
	v.SetDefault("general.state_dir", "/var/lib/deadlinejob")
	v.SetDefault("general.debug_jobs", []string{})

	v.SetDefault("frames.ordering", "lexical")
	v.SetDefault("frames.max_frames", 0) // 0 = unlimited

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.listen", ":8087")
	v.SetDefault("http.read_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	// Jobs are disabled by default
	v.SetDefault("jobs.frames_audit.enabled", false)
	v.SetDefault("jobs.frames_audit.rewrite", false)
	v.SetDefault("jobs.redis_key_cleanup.enabled", false)
	v.SetDefault("jobs.redis_key_cleanup.mode", KeyDeleteOnJobDelete)
	v.SetDefault("jobs.redis_key_cleanup.env_key", "DL_JOB_REDIS_KEYS")
	v.SetDefault("jobs.redis_key_cleanup.ledger_max_age", 30*24*time.Hour)

	v.SetDefault("instances", []InstanceConfig{})
}
