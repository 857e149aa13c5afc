package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// JobStatus represents the current state of a reconciliation job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress
	// updates before it is considered hung.
	DefaultJobStaleThreshold = 15 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before being
	// forcefully marked as failed.
	DefaultJobMaxDuration = time.Hour

	// DefaultJobRetention is how long finished jobs (and their sessions) stay
	// in memory.
	DefaultJobRetention = 24 * time.Hour

	// DefaultMaxConcurrentJobs bounds the jobs running at once.
	DefaultMaxConcurrentJobs = 2
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
	ErrJobNotReady       = errors.New("job has no results yet")
	ErrTooManyJobs       = errors.New("too many reconciliations running")
	ErrNoLedger          = errors.New("no repository configured for the ledger")
)

// Request holds the files of a reconciliation plus optional per-run
// overrides of the matching configuration.
type Request struct {
	Input               reconcile.Input
	SimilarityThreshold *float64
	DayTolerance        *int
}

// Progress holds real-time progress information.
type Progress struct {
	Phase      string    `json:"phase"` // "pending", "initializing", a reconcile phase, "completed", "failed", "cancelled"
	Current    int       `json:"current"`
	Total      int       `json:"total"`
	LastUpdate time.Time `json:"last_update"`
}

// Job is a snapshot of a running or finished reconciliation.
type Job struct {
	ID               string
	Status           JobStatus
	StartedAt        time.Time
	CompletedAt      *time.Time
	Progress         Progress
	RunID            int64 // 0 when no repository is configured
	StatementFiles   int
	ContributorFiles int
	Session          *reconcile.Session
	Error            error
	Finalized        int

	cancelFunc context.CancelFunc
}

// Reconciler runs one reconciliation.
type Reconciler interface {
	Run(ctx context.Context, in reconcile.Input, progress reconcile.Progress) (*reconcile.Session, error)
}

// ReconcilerFactory creates the reconciler for one job's options.
type ReconcilerFactory func(opts reconcile.Options) Reconciler

// ReconciliationService manages reconciliation jobs.
type ReconciliationService struct {
	opts    reconcile.Options
	storage storage.Repository
	logger  *slog.Logger
	factory ReconcilerFactory
	maxJobs int

	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconciliationService creates a new service. store may be nil, in which
// case nothing is learned or persisted.
func NewReconciliationService(opts reconcile.Options, store storage.Repository, logger *slog.Logger) *ReconciliationService {
	s := &ReconciliationService{
		opts:    opts,
		storage: store,
		logger:  logger,
		maxJobs: DefaultMaxConcurrentJobs,
		jobs:    make(map[string]*Job),
	}
	s.factory = func(o reconcile.Options) Reconciler {
		var associations reconcile.AssociationStore
		if store != nil {
			associations = store
		}
		return reconcile.NewRunner(o, associations, logger)
	}
	return s
}

// WithReconcilerFactory replaces how runners are built.
func (s *ReconciliationService) WithReconcilerFactory(factory ReconcilerFactory) *ReconciliationService {
	s.factory = factory
	return s
}

// WithMaxConcurrentJobs sets the number of jobs allowed to run at once.
func (s *ReconciliationService) WithMaxConcurrentJobs(n int) *ReconciliationService {
	if n > 0 {
		s.maxJobs = n
	}
	return s
}

// StartReconciliation starts a new job asynchronously and returns its id.
// The passed context is NOT the parent of the job: uploads finish long before
// the run does. Use CancelReconciliation to stop it.
func (s *ReconciliationService) StartReconciliation(_ context.Context, req Request) (string, error) {
	if len(req.Input.Statements) == 0 {
		return "", fmt.Errorf("at least one statement file is required")
	}

	opts := s.opts
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 100 {
			return "", fmt.Errorf("similarity threshold must be between 0 and 100, got %v", *req.SimilarityThreshold)
		}
		opts.Matching.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.DayTolerance != nil {
		if *req.DayTolerance < 0 {
			return "", fmt.Errorf("day tolerance must not be negative, got %d", *req.DayTolerance)
		}
		opts.Matching.DayTolerance = *req.DayTolerance
	}

	contributorFiles := 0
	for _, c := range req.Input.Churches {
		contributorFiles += len(c.Files)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &Job{
		ID:               uuid.NewString(),
		Status:           StatusPending,
		StartedAt:        now,
		Progress:         Progress{Phase: "pending", LastUpdate: now},
		StatementFiles:   len(req.Input.Statements),
		ContributorFiles: contributorFiles,
		cancelFunc:       cancel,
	}

	s.jobsMutex.Lock()
	if s.activeJobsUnsafe() >= s.maxJobs {
		s.jobsMutex.Unlock()
		cancel()
		return "", ErrTooManyJobs
	}
	s.jobs[job.ID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job.ID, opts, req.Input)

	s.logger.Info("reconciliation job started",
		"job_id", job.ID,
		"statement_files", job.StatementFiles,
		"contributor_files", contributorFiles,
		"churches", len(req.Input.Churches),
	)
	return job.ID, nil
}

// GetJob returns a snapshot of a job.
func (s *ReconciliationService) GetJob(jobID string) (Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// ListJobs returns snapshots of all jobs, newest first.
func (s *ReconciliationService) ListJobs() []Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

// Session returns the results session of a completed job.
func (s *ReconciliationService) Session(jobID string) (*reconcile.Session, error) {
	job, err := s.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Session == nil {
		return nil, fmt.Errorf("%w: status=%s", ErrJobNotReady, job.Status)
	}
	return job.Session, nil
}

// WaitForJob polls a job until it leaves the pending and running states or
// ctx is done.
func (s *ReconciliationService) WaitForJob(ctx context.Context, jobID string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.GetJob(jobID)
		if err != nil {
			return Job{}, err
		}
		if job.Status != StatusPending && job.Status != StatusRunning {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CancelReconciliation cancels a pending or running job.
func (s *ReconciliationService) CancelReconciliation(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("%w: status=%s", ErrJobNotCancellable, job.Status)
	}

	job.cancelFunc()
	now := time.Now()
	job.Status = StatusCancelled
	job.CompletedAt = &now
	job.Progress.Phase = "cancelled"
	job.Progress.LastUpdate = now

	s.logger.Info("reconciliation job cancelled", "job_id", jobID)
	return nil
}

// Finalize writes the identified results of a completed job to the ledger of
// its run and returns how many entries were written.
func (s *ReconciliationService) Finalize(ctx context.Context, jobID string) (int, error) {
	if s.storage == nil {
		return 0, ErrNoLedger
	}
	job, err := s.GetJob(jobID)
	if err != nil {
		return 0, err
	}
	if job.Session == nil {
		return 0, fmt.Errorf("%w: status=%s", ErrJobNotReady, job.Status)
	}

	n, err := job.Session.Finalize(ctx, reconcile.NewLedgerSink(s.storage, job.RunID))
	if err != nil {
		return 0, err
	}

	s.jobsMutex.Lock()
	if j, exists := s.jobs[jobID]; exists {
		j.Finalized = n
	}
	s.jobsMutex.Unlock()

	s.logger.Info("reconciliation finalized", "job_id", jobID, "run_id", job.RunID, "entries", n)
	return n, nil
}

// runJob executes the reconciliation in a background goroutine.
func (s *ReconciliationService) runJob(ctx context.Context, jobID string, opts reconcile.Options, in reconcile.Input) {
	s.updateProgress(jobID, StatusRunning, "initializing", 0, 0)

	// run history outlives cancellation of the job itself
	persistCtx := context.WithoutCancel(ctx)

	var runID int64
	if s.storage != nil {
		job, _ := s.GetJob(jobID)
		id, err := s.storage.StartRun(persistCtx, jobID, job.StatementFiles, job.ContributorFiles)
		if err != nil {
			s.failJob(jobID, fmt.Errorf("failed to record run: %w", err))
			return
		}
		runID = id
		s.setRunID(jobID, runID)
	}

	session, err := s.factory(opts).Run(ctx, in, func(phase reconcile.Phase, current, total int) {
		s.updateProgress(jobID, StatusRunning, string(phase), current, total)
	})

	if err != nil {
		if ctx.Err() != nil {
			// already marked as cancelled by CancelReconciliation or the stale sweep
			s.recordRun(persistCtx, runID, storage.RunOutcome{Status: storage.RunStatusCancelled})
			return
		}
		s.failJob(jobID, err)
		s.recordRun(persistCtx, runID, storage.RunOutcome{ErrorMessage: err.Error()})
		return
	}

	report := session.Report()
	if !s.completeJob(jobID, session) {
		s.recordRun(persistCtx, runID, storage.RunOutcome{Status: storage.RunStatusCancelled})
		return
	}
	s.recordRun(persistCtx, runID, storage.RunOutcome{
		Transactions: report.Transactions,
		Identified:   report.Summary.Identified,
		Unidentified: report.Summary.Unidentified,
		Pending:      report.Summary.Pending,
		Divergent:    report.Summary.Divergent,
	})
}

func (s *ReconciliationService) recordRun(ctx context.Context, runID int64, outcome storage.RunOutcome) {
	if s.storage == nil || runID == 0 {
		return
	}
	if err := s.storage.CompleteRun(ctx, runID, outcome); err != nil {
		s.logger.Warn("failed to record run outcome", "run_id", runID, "error", err)
	}
}

// updateProgress moves an active job forward. Progress within a phase never
// goes backwards; ingestion workers report out of order.
func (s *ReconciliationService) updateProgress(jobID string, status JobStatus, phase string, current, total int) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || (job.Status != StatusPending && job.Status != StatusRunning) {
		return
	}
	job.Status = status
	if job.Progress.Phase == phase && current < job.Progress.Current {
		current = job.Progress.Current
	}
	job.Progress = Progress{Phase: phase, Current: current, Total: total, LastUpdate: time.Now()}
}

func (s *ReconciliationService) setRunID(jobID string, runID int64) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.RunID = runID
	}
}

// completeJob stores the session of a finished run. It returns false when the
// job was cancelled or marked stale in the meantime.
func (s *ReconciliationService) completeJob(jobID string, session *reconcile.Session) bool {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != StatusRunning {
		return false
	}

	summary := session.Report().Summary
	now := time.Now()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	job.Session = session
	job.Progress.Phase = "completed"
	job.Progress.LastUpdate = now

	s.logger.Info("reconciliation job completed",
		"job_id", jobID,
		"identified", summary.Identified,
		"unidentified", summary.Unidentified,
		"pending", summary.Pending,
	)
	return true
}

func (s *ReconciliationService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status == StatusCancelled {
		return
	}
	now := time.Now()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Error = err
	job.Progress = Progress{Phase: "failed", LastUpdate: now}
	s.logger.Error("reconciliation job failed", "job_id", jobID, "error", err)
}

func (s *ReconciliationService) activeJobsUnsafe() int {
	n := 0
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			n++
		}
	}
	return n
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *ReconciliationService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconciliation jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed fails active jobs that ran longer than maxDuration or
// reported no progress for staleThreshold, cancelling their context.
func (s *ReconciliationService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0
	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		reason := ""
		switch {
		case now.Sub(job.StartedAt) > maxDuration:
			reason = fmt.Sprintf("exceeded max duration of %v", maxDuration)
		case now.Sub(job.Progress.LastUpdate) > staleThreshold:
			reason = fmt.Sprintf("no progress update for %v", now.Sub(job.Progress.LastUpdate).Round(time.Second))
		default:
			continue
		}

		if job.cancelFunc != nil {
			job.cancelFunc()
		}
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = fmt.Errorf("job marked as stale: %s", reason)
		job.Progress.Phase = "failed"
		job.Progress.LastUpdate = now

		s.logger.Warn("marked stale job as failed", "job_id", id, "reason", reason)
		marked++
	}
	return marked
}

// StartBackgroundCleanup periodically fails stale jobs and drops old ones.
// Call StopBackgroundCleanup to stop it.
func (s *ReconciliationService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.cleanupStop:
				return
			case <-ticker.C:
				if n := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration); n > 0 {
					s.logger.Info("marked stale jobs as failed", "count", n)
				}
				s.CleanupOldJobs(DefaultJobRetention)
			}
		}
	}()
}

// StopBackgroundCleanup stops the cleanup goroutine and waits for it.
func (s *ReconciliationService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
