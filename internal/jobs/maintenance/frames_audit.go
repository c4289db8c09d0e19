package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/jmylchreest/go-deadlinejob/internal/config"
	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/jobs"
)

// FramesAuditJob checks the frame string of every queued job. Strings that
// do not parse are reported, and strings that parse but are not in their
// shortest form can be rewritten in place. Strings that read differently
// under lexical and numeric ordering, or that expand to nothing, are only
// reported.
type FramesAuditJob struct {
	name          string
	enabled       bool
	rewrite       bool
	manager       *jobs.Manager
	logger        *slog.Logger
	testRun       bool
	lastFound     int
	lastRewritten int
}

// NewFramesAuditJob creates a new frames audit job
func NewFramesAuditJob(
	name string,
	cfg config.FramesAuditConfig,
	manager *jobs.Manager,
	logger *slog.Logger,
	testRun bool,
) *FramesAuditJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &FramesAuditJob{
		name:    name,
		enabled: cfg.Enabled,
		rewrite: cfg.Rewrite,
		manager: manager,
		logger:  logger.With("job", name),
		testRun: testRun,
	}
}

// Name returns the job identifier
func (j *FramesAuditJob) Name() string {
	return j.name
}

// Enabled returns whether the job is enabled
func (j *FramesAuditJob) Enabled() bool {
	return j.enabled
}

// Stats returns the statistics from the last run
func (j *FramesAuditJob) Stats() jobs.JobStats {
	return jobs.JobStats{Found: j.lastFound, Changed: j.lastRewritten}
}

// Run audits every registered instance
func (j *FramesAuditJob) Run(ctx context.Context) error {
	j.lastFound = 0
	j.lastRewritten = 0

	clients := j.manager.GetAllDeadlineClients()
	var errs []error

	for _, instance := range slices.Sorted(maps.Keys(clients)) {
		if err := j.auditInstance(ctx, instance, clients[instance]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", instance, err))
		}
	}

	return errors.Join(errs...)
}

func (j *FramesAuditJob) auditInstance(ctx context.Context, instance string, client *deadline.Client) error {
	records, err := client.GetJobs(ctx)
	if err != nil {
		return fmt.Errorf("get jobs: %w", err)
	}

	codec := j.manager.Codec()
	var errs []error

	for _, rec := range records {
		if !isQueued(rec.Stat) {
			continue
		}

		logger := j.logger.With("instance", instance, "job_id", rec.ID, "job_name", rec.Props.Name)

		frames, err := codec.Parse(rec.Props.Frames)
		if err != nil {
			j.lastFound++
			logger.Warn("invalid frame range", "frames", rec.Props.Frames, "error", err)
			continue
		}

		canonical := codec.Format(frames)
		if canonical == rec.Props.Frames {
			continue
		}

		j.lastFound++

		// Never replace a frame string whose meaning depends on the ordering
		// rule, or one that names no frames, with the codec's reading of it.
		if codec.OrderingSensitive(rec.Props.Frames) {
			logger.Warn("ambiguous frame range", "frames", rec.Props.Frames, "ordering", codec.Ordering.String())
			continue
		}
		if len(frames) == 0 && strings.TrimSpace(rec.Props.Frames) != "" {
			logger.Warn("frame range has no frames", "frames", rec.Props.Frames)
			continue
		}

		logger.Info("frame string is not canonical", "frames", rec.Props.Frames, "canonical", canonical)

		if !j.rewrite {
			continue
		}
		if j.testRun {
			logger.Info("test run: would rewrite frames", "canonical", canonical)
			continue
		}

		if err := client.SetJobFrames(ctx, rec.ID, canonical, max(rec.Props.Chunk, 1)); err != nil {
			logger.Error("failed to rewrite frames", "error", err)
			errs = append(errs, fmt.Errorf("job %s: %w", rec.ID, err))
			continue
		}

		j.lastRewritten++
		logger.Info("rewrote frames", "frames", canonical)
	}

	return errors.Join(errs...)
}

// isQueued reports whether a job still has frames left to dispatch
func isQueued(status int) bool {
	switch status {
	case deadline.StatusActive, deadline.StatusSuspended, deadline.StatusPending:
		return true
	}
	return false
}
