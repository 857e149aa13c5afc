package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu           sync.Mutex
	associations map[string]*Association
	runs         map[int64]*Run
	ledger       map[int64][]LedgerEntry
	nextAssocID  int64
	nextRunID    int64
	nextLedgerID int64

	// Hooks for test assertions
	SaveAssociationCalls int
	StartRunCalled       bool
	CompleteRunCalled    bool
	LastOutcome          *RunOutcome

	// Error injection for testing error paths
	SaveAssociationErr   error
	ListAssociationsErr  error
	StartRunErr          error
	CompleteRunErr       error
	SaveLedgerEntriesErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		associations: make(map[string]*Association),
		runs:         make(map[int64]*Run),
		ledger:       make(map[int64][]LedgerEntry),
		nextAssocID:  1,
		nextRunID:    1,
		nextLedgerID: 1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveAssociation upserts into the in-memory map
func (m *MockRepository) SaveAssociation(_ context.Context, a matcher.LearnedAssociation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveAssociationCalls++
	if m.SaveAssociationErr != nil {
		return m.SaveAssociationErr
	}

	now := time.Now().UTC()
	if existing, ok := m.associations[a.NormalizedDescription]; ok {
		existing.ChurchID = a.ChurchID
		existing.ContributorName = strings.TrimSpace(a.ContributorName)
		existing.TimesConfirmed++
		existing.UpdatedAt = now
		return nil
	}

	m.associations[a.NormalizedDescription] = &Association{
		ID:                    m.nextAssocID,
		NormalizedDescription: a.NormalizedDescription,
		ChurchID:              a.ChurchID,
		ContributorName:       strings.TrimSpace(a.ContributorName),
		TimesConfirmed:        1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	m.nextAssocID++
	return nil
}

// GetAssociation retrieves an association from the in-memory map
func (m *MockRepository) GetAssociation(_ context.Context, normalizedDescription string) (*Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.associations[normalizedDescription]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// ListAssociations returns associations in creation order
func (m *MockRepository) ListAssociations(_ context.Context) ([]Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAssociationsErr != nil {
		return nil, m.ListAssociationsErr
	}

	out := make([]Association, 0, len(m.associations))
	for _, a := range m.associations {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// StartRun records a run in memory
func (m *MockRepository) StartRun(_ context.Context, jobID string, statementFiles, contributorFiles int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &Run{
		ID:               id,
		JobID:            jobID,
		StartedAt:        time.Now().UTC(),
		Status:           RunStatusRunning,
		StatementFiles:   statementFiles,
		ContributorFiles: contributorFiles,
	}
	return id, nil
}

// CompleteRun marks a run as completed
func (m *MockRepository) CompleteRun(_ context.Context, runID int64, outcome RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	m.LastOutcome = &outcome
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}

	status := outcome.Status
	if status == "" {
		status = RunStatusCompleted
		if outcome.ErrorMessage != "" {
			status = RunStatusFailed
		}
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = status
	run.Transactions = outcome.Transactions
	run.Identified = outcome.Identified
	run.Unidentified = outcome.Unidentified
	run.Pending = outcome.Pending
	run.Divergent = outcome.Divergent
	run.ErrorMessage = outcome.ErrorMessage
	return nil
}

// ListRuns returns runs newest first
func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = defaultRunLimit
	}
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(_ context.Context, runID int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

// SaveLedgerEntries stores entries, replacing any saved for the same result
func (m *MockRepository) SaveLedgerEntries(_ context.Context, runID int64, entries []LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveLedgerEntriesErr != nil {
		return m.SaveLedgerEntriesErr
	}

	for _, e := range entries {
		e.RunID = runID
		e.ID = m.nextLedgerID
		e.CreatedAt = time.Now().UTC()
		m.nextLedgerID++

		existing := m.ledger[runID]
		replaced := false
		for i := range existing {
			if existing[i].ResultID == e.ResultID {
				existing[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			m.ledger[runID] = append(existing, e)
		}
	}
	return nil
}

// ListLedgerEntries returns the entries of a run
func (m *MockRepository) ListLedgerEntries(_ context.Context, runID int64) ([]LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LedgerEntry, len(m.ledger[runID]))
	copy(out, m.ledger[runID])
	return out, nil
}
