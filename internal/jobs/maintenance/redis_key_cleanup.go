// Package maintenance holds the periodic jobs run against Deadline instances
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/jmylchreest/go-deadlinejob/internal/config"
	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/job"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs"
)

// ErrNoKeyStore is returned when the job runs without a Redis store
var ErrNoKeyStore = errors.New("redis key store not configured")

// RedisKeyCleanupJob deletes the Redis keys a job lists in its environment
// once the job has been deleted or purged from Deadline.
type RedisKeyCleanupJob struct {
	name        string
	enabled     bool
	mode        string
	envKey      string
	manager     *jobs.Manager
	logger      *slog.Logger
	testRun     bool
	lastFound   int
	lastDeleted int
}

// NewRedisKeyCleanupJob creates a new key cleanup job
func NewRedisKeyCleanupJob(
	name string,
	cfg config.RedisKeyCleanupConfig,
	manager *jobs.Manager,
	logger *slog.Logger,
	testRun bool,
) *RedisKeyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}

	envKey := cfg.EnvKey
	if envKey == "" {
		envKey = job.DefaultRedisKeysEnv
	}

	return &RedisKeyCleanupJob{
		name:    name,
		enabled: cfg.Enabled,
		mode:    cfg.Mode,
		envKey:  envKey,
		manager: manager,
		logger:  logger.With("job", name),
		testRun: testRun,
	}
}

// Name returns the job identifier
func (j *RedisKeyCleanupJob) Name() string {
	return j.name
}

// Enabled returns whether the job is enabled
func (j *RedisKeyCleanupJob) Enabled() bool {
	return j.enabled
}

// Stats returns the statistics from the last run. Found counts jobs whose
// keys were due for deletion, Changed counts deleted keys.
func (j *RedisKeyCleanupJob) Stats() jobs.JobStats {
	return jobs.JobStats{Found: j.lastFound, Changed: j.lastDeleted}
}

// Run tracks and releases keys on every registered instance
func (j *RedisKeyCleanupJob) Run(ctx context.Context) error {
	j.lastFound = 0
	j.lastDeleted = 0

	if j.manager.GetKeyStore() == nil {
		return ErrNoKeyStore
	}

	clients := j.manager.GetAllDeadlineClients()
	var errs []error

	for _, instance := range slices.Sorted(maps.Keys(clients)) {
		if err := j.cleanInstance(ctx, instance, clients[instance]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", instance, err))
		}
	}

	return errors.Join(errs...)
}

func (j *RedisKeyCleanupJob) cleanInstance(ctx context.Context, instance string, client *deadline.Client) error {
	// Both lists are needed before anything is released, a partial view
	// would make live jobs look purged.
	active, err := client.GetJobs(ctx)
	if err != nil {
		return fmt.Errorf("get jobs: %w", err)
	}
	deleted, err := client.GetDeletedJobs(ctx)
	if err != nil {
		return fmt.Errorf("get deleted jobs: %w", err)
	}

	store := j.manager.GetKeyStore()
	keyLedger := j.manager.GetLedger()

	inActive := make(map[string]bool, len(active))
	inDeleted := make(map[string]bool, len(deleted))
	for _, rec := range active {
		inActive[rec.ID] = true
		keyLedger.Track(instance, rec.ID, rec.Props.Name, job.SplitList(rec.Props.Env[j.envKey]))
	}
	for _, rec := range deleted {
		inDeleted[rec.ID] = true
		keyLedger.Track(instance, rec.ID, rec.Props.Name, job.SplitList(rec.Props.Env[j.envKey]))
	}

	var errs []error

	for _, entry := range keyLedger.Entries(instance) {
		if !j.shouldRelease(inActive[entry.JobID], inDeleted[entry.JobID]) {
			continue
		}

		j.lastFound++
		logger := j.logger.With("instance", instance, "job_id", entry.JobID, "job_name", entry.JobName)

		if j.testRun {
			logger.Info("test run: would delete redis keys", "keys", entry.Keys)
			continue
		}

		n, err := store.Delete(ctx, entry.Keys...)
		if err != nil {
			logger.Error("failed to delete redis keys", "error", err)
			errs = append(errs, fmt.Errorf("job %s: %w", entry.JobID, err))
			continue
		}

		j.lastDeleted += int(n)
		keyLedger.Release(instance, entry.JobID)
		logger.Info("deleted redis keys", "requested", len(entry.Keys), "deleted", n)
	}

	return errors.Join(errs...)
}

func (j *RedisKeyCleanupJob) shouldRelease(active, deleted bool) bool {
	if j.mode == config.KeyDeleteOnJobPurge {
		return !active && !deleted
	}
	return deleted || !active
}
