package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jmylchreest/go-deadlinejob/internal/config"
	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/logging"
	"github.com/jmylchreest/go-deadlinejob/internal/version"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	jsonOutput    bool

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

// ensureConfig loads the configuration and sets up logging once per run.
// Logs go to stderr so command output stays clean.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}

		cfg.General.LogLevel, cfg.General.LogFormat = logging.EnvOverrides(cfg.General.LogLevel, cfg.General.LogFormat)
		if c.logLevelFlag != "" {
			cfg.General.LogLevel = c.logLevelFlag
		}
		if c.logFormatFlag != "" {
			cfg.General.LogFormat = c.logFormatFlag
		}

		c.config = cfg
		c.logger = logging.SetupWithOutput(os.Stderr, cfg.General.LogLevel, cfg.General.LogFormat)
	})
	return c.config, c.configErr
}

func (c *commandContext) loggerValue() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// codec returns the configured codec, with an optional ordering override
func (c *commandContext) codec(ordering string) (framelist.Codec, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return framelist.Codec{}, err
	}

	codec := cfg.Codec()
	if ordering != "" {
		o, err := framelist.ParseOrdering(ordering)
		if err != nil {
			return framelist.Codec{}, err
		}
		codec.Ordering = o
	}
	return codec, nil
}

// deadlineClient connects to the named instance, or the first enabled one
func (c *commandContext) deadlineClient(name string) (*deadline.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireInstances(); err != nil {
		return nil, err
	}

	for _, inst := range cfg.EnabledInstances() {
		if name != "" && inst.Name != name {
			continue
		}
		return newDeadlineClient(cfg, inst, c.loggerValue()), nil
	}
	return nil, fmt.Errorf("no enabled instance named %q", name)
}

func newDeadlineClient(cfg *config.Config, inst config.InstanceConfig, logger *slog.Logger) *deadline.Client {
	return deadline.NewClient(deadline.ClientConfig{
		Name:      inst.Name,
		BaseURL:   inst.URL,
		Username:  inst.Username,
		Password:  inst.Password,
		Timeout:   cfg.General.RequestTimeout,
		SkipTLS:   !cfg.General.SSLVerification,
		UserAgent: version.UserAgent(),
		Logger:    logger,
	})
}
