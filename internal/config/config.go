package config

import (
	"time"

	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// Config represents the complete application configuration
type Config struct {
	General   GeneralConfig    `mapstructure:"general"`
	Frames    FramesConfig     `mapstructure:"frames"`
	HTTP      HTTPConfig       `mapstructure:"http"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Jobs      JobsConfig       `mapstructure:"jobs"`
	Instances []InstanceConfig `mapstructure:"instances"`
}

// GeneralConfig contains global application settings
type GeneralConfig struct {
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	TestRun         bool          `mapstructure:"test_run"`
	Timer           time.Duration `mapstructure:"timer"`
	SSLVerification bool          `mapstructure:"ssl_verification"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	StateDir        string        `mapstructure:"state_dir"`

	// DebugJobs lists maintenance jobs that log at debug level regardless of LogLevel
	DebugJobs []string `mapstructure:"debug_jobs"`
}

// FramesConfig controls how frame strings are read and written
type FramesConfig struct {
	Ordering  string `mapstructure:"ordering"`
	MaxFrames int    `mapstructure:"max_frames"`
}

// HTTPConfig configures the daemon's HTTP API
type HTTPConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Listen      string        `mapstructure:"listen"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// RedisConfig points at the cache that render jobs store keys in
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Maintenance job names, as used in logs, stats and debug_jobs
const (
	JobFramesAudit     = "frames_audit"
	JobRedisKeyCleanup = "redis_key_cleanup"
)

// JobsConfig contains individual job configurations
type JobsConfig struct {
	FramesAudit     FramesAuditConfig     `mapstructure:"frames_audit"`
	RedisKeyCleanup RedisKeyCleanupConfig `mapstructure:"redis_key_cleanup"`
}

// FramesAuditConfig configures the frames_audit job
type FramesAuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Rewrite bool `mapstructure:"rewrite"`
}

// Key deletion modes for redis_key_cleanup
const (
	KeyDeleteOnJobDelete = "JobDelete"
	KeyDeleteOnJobPurge  = "JobPurge"
)

// RedisKeyCleanupConfig configures the redis_key_cleanup job
type RedisKeyCleanupConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"`
	EnvKey       string        `mapstructure:"env_key"`
	LedgerMaxAge time.Duration `mapstructure:"ledger_max_age"`
}

// InstanceConfig represents a single Deadline Web Service
type InstanceConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Enabled  bool   `mapstructure:"enabled"`
}

// Codec returns the frame codec described by the frames section.
// The section must have passed validation.
func (c *Config) Codec() framelist.Codec {
	ordering, _ := framelist.ParseOrdering(c.Frames.Ordering)
	return framelist.Codec{Ordering: ordering, MaxFrames: c.Frames.MaxFrames}
}

// EnabledInstances returns the instances that are switched on
func (c *Config) EnabledInstances() []InstanceConfig {
	var out []InstanceConfig
	for _, inst := range c.Instances {
		if inst.Enabled {
			out = append(out, inst)
		}
	}
	return out
}

// RedisEnabled reports whether any job needs the Redis key store
func (c *Config) RedisEnabled() bool {
	return c.Jobs.RedisKeyCleanup.Enabled && c.Redis.Addr != ""
}
