package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/go-deadlinejob/internal/config"
	"github.com/jmylchreest/go-deadlinejob/internal/httpapi"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs/maintenance"
	"github.com/jmylchreest/go-deadlinejob/internal/keystore"
	"github.com/jmylchreest/go-deadlinejob/internal/logging"
	"github.com/jmylchreest/go-deadlinejob/internal/version"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run maintenance jobs on a timer and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, ctx.loggerValue(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single maintenance cycle and exit")

	return cmd
}

func runDaemon(parent context.Context, cfg *config.Config, logger *slog.Logger, once bool) error {
	if err := cfg.RequireInstances(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.General.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.General.StateDir, "daemon.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another deadlinejob daemon is already running")
	}
	defer func() { _ = lock.Unlock() }()

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	info := version.Get()
	logger.Info("starting deadlinejob",
		"version", info.Version,
		"commit", info.Commit,
		"built", info.BuildDate,
		"state_dir", cfg.General.StateDir,
	)

	manager := jobs.NewManager(cfg, logger, filepath.Join(cfg.General.StateDir, "ledger.json"))
	defer manager.Close()

	registerAll(ctx, manager, cfg, logger)

	if cfg.HTTP.Enabled {
		srv := httpapi.NewServer(cfg.HTTP.Listen, cfg.HTTP.ReadTimeout, httpapi.Deps{
			Codec:       cfg.Codec(),
			Stats:       manager,
			Jobs:        manager,
			Logger:      logger,
			SetLogLevel: logging.SetLevel,
		})
		go func() {
			logger.Info("http api listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http api stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runCycle(ctx, manager, logger, cfg.General.TestRun)
	if once {
		return nil
	}

	ticker := time.NewTicker(cfg.General.Timer)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, manager, logger, cfg.General.TestRun)
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return nil
		}
	}
}

func runCycle(ctx context.Context, manager *jobs.Manager, logger *slog.Logger, testRun bool) {
	if testRun {
		logger.Info("running in TEST MODE - no changes will be made")
	}
	if err := manager.RunAll(ctx); err != nil {
		logger.Error("cycle had errors", "error", err)
	}
}

func registerAll(ctx context.Context, manager *jobs.Manager, cfg *config.Config, logger *slog.Logger) {
	for _, inst := range cfg.EnabledInstances() {
		manager.RegisterDeadlineClient(inst.Name, newDeadlineClient(cfg, inst, logger))
		logger.Debug("registered deadline instance", "name", inst.Name, "url", inst.URL)
	}

	if cfg.RedisEnabled() {
		store := keystore.NewRedisStore(keystore.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		}, logger)
		if err := store.Ping(ctx); err != nil {
			logger.Warn("redis not reachable yet", "addr", cfg.Redis.Addr, "error", err)
		}
		manager.SetKeyStore(store)
	}

	for _, name := range cfg.General.DebugJobs {
		logging.AddJobFilter(name)
		logger.Debug("debug logging enabled for job", "job", name)
	}

	if cfg.Jobs.FramesAudit.Enabled {
		job := maintenance.NewFramesAuditJob(config.JobFramesAudit, cfg.Jobs.FramesAudit, manager, logger, cfg.General.TestRun)
		manager.RegisterJob(job)
	}
	if cfg.Jobs.RedisKeyCleanup.Enabled {
		job := maintenance.NewRedisKeyCleanupJob(config.JobRedisKeyCleanup, cfg.Jobs.RedisKeyCleanup, manager, logger, cfg.General.TestRun)
		manager.RegisterJob(job)
	}

	logger.Debug("initialization complete",
		"instances", len(cfg.EnabledInstances()),
		"redis", cfg.RedisEnabled(),
	)
}
