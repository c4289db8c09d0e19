package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/go-deadlinejob/internal/config"
	"github.com/jmylchreest/go-deadlinejob/internal/deadline"
	"github.com/jmylchreest/go-deadlinejob/internal/keystore"
	"github.com/jmylchreest/go-deadlinejob/internal/ledger"
	"github.com/jmylchreest/go-deadlinejob/pkg/framelist"
)

// CycleStats tracks statistics for a single execution cycle
type CycleStats struct {
	CycleID      string         `json:"cycle_id"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Duration     time.Duration  `json:"duration"`
	JobsRun      int            `json:"jobs_run"`
	JobsFailed   int            `json:"jobs_failed"`
	ItemsFound   map[string]int `json:"items_found"`   // job name -> count found
	ItemsChanged map[string]int `json:"items_changed"` // job name -> count changed
	KeysTracked  int            `json:"keys_tracked"`
	KeysReleased int            `json:"keys_released"`
	TotalTracked int            `json:"total_tracked"`
	Errors       []string       `json:"errors"`
}

// Manager coordinates job execution across multiple Deadline instances
type Manager struct {
	cfg       *config.Config
	logger    *slog.Logger
	jobs      []Job
	clients   map[string]*deadline.Client // keyed by instance name
	keys      keystore.Store
	ledger    *ledger.Ledger
	codec     framelist.Codec
	mu        sync.RWMutex
	lastStats *CycleStats
}

// NewManager creates a new job manager with the given configuration
func NewManager(cfg *config.Config, logger *slog.Logger, ledgerPath string) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:     cfg,
		logger:  logger.With("component", "job_manager"),
		jobs:    make([]Job, 0),
		clients: make(map[string]*deadline.Client),
		ledger:  ledger.New(ledgerPath, logger),
		codec:   cfg.Codec(),
	}
}

// RegisterJob adds a job to the manager's execution list
func (m *Manager) RegisterJob(job Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = append(m.jobs, job)
	m.logger.Info("registered job", "job", job.Name())
}

// RegisterDeadlineClient adds a Web Service client to the manager
func (m *Manager) RegisterDeadlineClient(name string, client *deadline.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients[name] = client
	m.logger.Info("registered deadline client", "instance", name)
}

// SetKeyStore sets the Redis store used by key cleanup
func (m *Manager) SetKeyStore(store keystore.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = store
}

// RunAll executes all enabled jobs. A failing job does not stop the cycle.
func (m *Manager) RunAll(ctx context.Context) error {
	m.mu.RLock()
	jobs := m.jobs
	m.mu.RUnlock()

	stats := &CycleStats{
		CycleID:      uuid.NewString(),
		StartTime:    time.Now(),
		ItemsFound:   make(map[string]int),
		ItemsChanged: make(map[string]int),
		Errors:       make([]string, 0),
	}
	logger := m.logger.With("cycle_id", stats.CycleID)

	var failedJobs []string

	for _, job := range jobs {
		if !job.Enabled() {
			logger.Debug("skipping disabled job", "job", job.Name())
			continue
		}

		logger.Info("running job", "job", job.Name())
		stats.JobsRun++

		if err := job.Run(ctx); err != nil {
			logger.Error("job failed, continuing", "job", job.Name(), "error", err)
			failedJobs = append(failedJobs, job.Name())
			stats.JobsFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", job.Name(), err))
		} else {
			logger.Info("job completed successfully", "job", job.Name())
		}

		if sj, ok := job.(StatsJob); ok {
			jobStats := sj.Stats()
			stats.ItemsFound[job.Name()] = jobStats.Found
			stats.ItemsChanged[job.Name()] = jobStats.Changed
		}
	}

	stats.KeysTracked, stats.KeysReleased = m.ledger.ResetCycleCounters()

	if maxAge := m.cfg.Jobs.RedisKeyCleanup.LedgerMaxAge; maxAge > 0 {
		if pruned := m.ledger.Prune(maxAge); pruned > 0 {
			logger.Info("pruned stale ledger entries", "count", pruned)
		}
	}
	stats.TotalTracked = m.ledger.Count()

	if err := m.ledger.Save(); err != nil {
		logger.Error("failed to save ledger", "error", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	m.mu.Lock()
	m.lastStats = stats
	m.mu.Unlock()

	m.logCycleSummary(logger, stats)

	if len(failedJobs) > 0 {
		return fmt.Errorf("%d jobs failed: %v", len(failedJobs), failedJobs)
	}

	return nil
}

// logCycleSummary outputs a summary of the execution cycle as structured log
func (m *Manager) logCycleSummary(logger *slog.Logger, stats *CycleStats) {
	totalFound := 0
	totalChanged := 0
	jobResults := make(map[string]JobStats)
	for jobName, found := range stats.ItemsFound {
		changed := stats.ItemsChanged[jobName]
		totalFound += found
		totalChanged += changed
		if found > 0 || changed > 0 {
			jobResults[jobName] = JobStats{Found: found, Changed: changed}
		}
	}

	logger.Info("cycle complete",
		slog.Group("cycle",
			slog.Duration("duration", stats.Duration.Round(time.Millisecond)),
			slog.Int("jobs_run", stats.JobsRun),
			slog.Int("jobs_failed", stats.JobsFailed),
		),
		slog.Group("totals",
			slog.Int("found", totalFound),
			slog.Int("changed", totalChanged),
		),
		slog.Group("ledger",
			slog.Int("tracked", stats.KeysTracked),
			slog.Int("released", stats.KeysReleased),
			slog.Int("total", stats.TotalTracked),
		),
		slog.Any("jobs", jobResults),
	)

	if len(stats.Errors) > 0 {
		logger.Warn("cycle errors",
			slog.Int("count", len(stats.Errors)),
			slog.Any("errors", stats.Errors),
		)
	}
}

// GetLastStats returns the statistics from the last execution cycle
func (m *Manager) GetLastStats() *CycleStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastStats
}

// GetAllJobs fetches the job list from every registered instance. Instances
// that fail are logged and left out of the result.
func (m *Manager) GetAllJobs(ctx context.Context) (map[string][]deadline.JobRecord, error) {
	clients := m.GetAllDeadlineClients()

	result := make(map[string][]deadline.JobRecord)
	var errs []error

	for _, name := range slices.Sorted(maps.Keys(clients)) {
		records, err := clients[name].GetJobs(ctx)
		if err != nil {
			m.logger.Error("failed to get jobs", "instance", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		result[name] = records
		m.logger.Debug("retrieved jobs", "instance", name, "jobs", len(records))
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("errors retrieving jobs: %v", errs)
	}

	return result, nil
}

// GetDeadlineClient retrieves a Web Service client by instance name
func (m *Manager) GetDeadlineClient(name string) (*deadline.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[name]
	return client, ok
}

// GetAllDeadlineClients returns a copy of the registered clients
func (m *Manager) GetAllDeadlineClients() map[string]*deadline.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.clients)
}

// GetKeyStore returns the Redis store, or nil when none is configured
func (m *Manager) GetKeyStore() keystore.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys
}

// GetLedger returns the key ledger
func (m *Manager) GetLedger() *ledger.Ledger {
	return m.ledger
}

// Codec returns the frame codec built from the frames config
func (m *Manager) Codec() framelist.Codec {
	return m.codec
}

// Close cleans up all resources
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ledger.Save(); err != nil {
		m.logger.Error("failed to save ledger on close", "error", err)
	}

	for name, client := range m.clients {
		client.Close()
		m.logger.Debug("closed deadline client", "instance", name)
	}

	if m.keys != nil {
		if err := m.keys.Close(); err != nil {
			m.logger.Warn("failed to close key store", "error", err)
		}
	}

	m.logger.Info("job manager closed")
}
