package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// Session owns the results of one run until they are finalized. Human
// decisions (manual matches, identifications, confirmations) mutate the
// results in place and append learned associations for future runs only.
// A Session is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	matcher   *matcher.Matcher
	store     AssociationStore
	logger    *slog.Logger
	churches  map[string]matcher.Church
	results   []matcher.MatchResult
	report    Report
	finalized bool
}

func newSession(
	m *matcher.Matcher,
	store AssociationStore,
	logger *slog.Logger,
	files []matcher.ContributorFile,
	results []matcher.MatchResult,
	report Report,
) *Session {
	churches := make(map[string]matcher.Church, len(files))
	for _, f := range files {
		churches[f.Church.ID] = f.Church
	}
	return &Session{
		matcher:  m,
		store:    store,
		logger:   logger,
		churches: churches,
		results:  results,
		report:   report,
	}
}

// Results returns a copy of the current results
func (s *Session) Results() []matcher.MatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]matcher.MatchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Result returns one result by id
func (s *Session) Result(id string) (matcher.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return matcher.MatchResult{}, fmt.Errorf("%w: %s", ErrResultNotFound, id)
	}
	return s.results[i], nil
}

// Churches returns the churches of the run
func (s *Session) Churches() []matcher.Church {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]matcher.Church, 0, len(s.churches))
	for _, c := range s.churches {
		out = append(out, c)
	}
	return out
}

// Report returns the run report with the summary of the current results
func (s *Session) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.report
	r.Files = append([]FileReport(nil), s.report.Files...)
	r.Summary = matcher.Summarize(s.results)
	return r
}

// Finalized reports whether Finalize has succeeded
func (s *Session) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized
}

// Candidates ranks the still-unidentified transactions for a ghost entry
func (s *Session) Candidates(ghostID string) ([]matcher.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(ghostID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, ghostID)
	}
	ghost := s.results[i]
	if !ghost.IsGhost() || ghost.Contributor == nil {
		return nil, ErrNotGhost
	}

	open := make([]matcher.Transaction, 0)
	for _, r := range s.results {
		if r.Status == matcher.StatusUnidentified && r.Transaction != nil {
			open = append(open, *r.Transaction)
		}
	}
	return s.matcher.RankCandidates(*ghost.Contributor, open), nil
}

// ConfirmManualMatch assigns the ghost's church and contributor to an
// unidentified transaction, removes the ghost and learns the association
func (s *Session) ConfirmManualMatch(ctx context.Context, ghostID, transactionID string) (*matcher.MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gi := s.indexOf(ghostID)
	if gi < 0 {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, ghostID)
	}
	ghost := s.results[gi]
	if !ghost.IsGhost() || ghost.Contributor == nil || ghost.Church == nil {
		return nil, ErrNotGhost
	}

	ti, err := s.openTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	tx := *s.results[ti].Transaction
	contributor := *ghost.Contributor
	if err := s.learn(ctx, matcher.NewAssociation(tx, ghost.Church.ID, contributor.Name)); err != nil {
		return nil, err
	}

	similarity := matcher.Similarity(tx.CleanedDescription, contributor.CleanedName)
	s.results[ti].Identify(*ghost.Church, &contributor, matcher.MethodManual, similarity)
	s.markConfirmed(ti)
	confirmed := s.results[ti]

	s.removeAt(gi)
	s.logger.Info("Confirmed manual match", "transaction_id", transactionID, "church_id", ghost.Church.ID)
	return &confirmed, nil
}

// IdentifyManually assigns a transaction to a church and contributor typed
// by a human. A PENDENTE entry of that church with the same name is consumed.
func (s *Session) IdentifyManually(ctx context.Context, resultID, churchID, contributorName string) (*matcher.MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	church, ok := s.churches[churchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChurch, churchID)
	}

	ti, err := s.openTransaction(resultID)
	if err != nil {
		return nil, err
	}

	tx := *s.results[ti].Transaction
	if err := s.learn(ctx, matcher.NewAssociation(tx, churchID, contributorName)); err != nil {
		return nil, err
	}

	ignore := s.matcher.Config().IgnoreKeywords
	key := matcher.ContributorKey(contributorName, ignore)
	var contributor *matcher.Contributor
	ghostIndex := -1
	for i, r := range s.results {
		if r.IsGhost() && r.Church != nil && r.Church.ID == churchID &&
			r.Contributor != nil && r.Contributor.NormalizedName == key {
			c := *r.Contributor
			contributor, ghostIndex = &c, i
			break
		}
	}
	if contributor == nil && contributorName != "" {
		c := matcher.NewContributor(ingest.NormalizedTransaction{Name: contributorName}, ignore)
		contributor = &c
	}

	similarity := 0.0
	if contributor != nil {
		similarity = matcher.Similarity(tx.CleanedDescription, contributor.CleanedName)
	}
	s.results[ti].Identify(church, contributor, matcher.MethodManual, similarity)
	s.markConfirmed(ti)
	identified := s.results[ti]

	if ghostIndex >= 0 {
		s.removeAt(ghostIndex)
	}
	return &identified, nil
}

// ConfirmResult accepts an identified result as correct, clearing any
// divergence flag and learning its association
func (s *Session) ConfirmResult(ctx context.Context, resultID string) (*matcher.MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(resultID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, resultID)
	}
	r := &s.results[i]
	if r.Status != matcher.StatusIdentified || r.Transaction == nil || r.Church == nil {
		return nil, ErrNotIdentified
	}

	name := ""
	if r.Contributor != nil {
		name = r.Contributor.Name
	}
	if err := s.learn(ctx, matcher.NewAssociation(*r.Transaction, r.Church.ID, name)); err != nil {
		return nil, err
	}

	r.Divergence = nil
	s.markConfirmed(i)
	confirmed := *r
	return &confirmed, nil
}

// ApplySuggestion asks the suggester to pick one of the pending contributor
// names for an unidentified transaction. A suggestion outside that list is
// ignored. The returned bool reports whether the result was identified.
// AI identifications are not learned until confirmed.
func (s *Session) ApplySuggestion(ctx context.Context, resultID string, suggester Suggester) (*matcher.MatchResult, bool, error) {
	s.mu.RLock()
	ti, err := s.openTransaction(resultID)
	if err != nil {
		s.mu.RUnlock()
		return nil, false, err
	}
	description := s.results[ti].Transaction.Description
	names := s.pendingNames()
	s.mu.RUnlock()

	if len(names) == 0 {
		r, _ := s.Result(resultID)
		return &r, false, nil
	}

	name, err := suggester.SuggestContributor(ctx, description, names)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get suggestion: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// re-resolve, the results may have changed while the suggester ran
	ti, err = s.openTransaction(resultID)
	if err != nil {
		return nil, false, err
	}
	key := matcher.ContributorKey(name, s.matcher.Config().IgnoreKeywords)
	for gi, r := range s.results {
		if !r.IsGhost() || r.Contributor == nil || r.Church == nil || key == "" || r.Contributor.NormalizedName != key {
			continue
		}
		c := *r.Contributor
		tx := s.results[ti].Transaction
		similarity := matcher.Similarity(tx.CleanedDescription, c.CleanedName)
		s.results[ti].Identify(*r.Church, &c, matcher.MethodAI, similarity)
		identified := s.results[ti]
		s.removeAt(gi)
		s.logger.Info("Applied suggestion", "result_id", resultID, "contributor", c.Name)
		return &identified, true, nil
	}

	unchanged := s.results[ti]
	return &unchanged, false, nil
}

// Finalize hands every identified, non-divergent transaction result to the
// sink. Divergent matches must be confirmed first.
func (s *Session) Finalize(ctx context.Context, sink FinalizedSink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	final := make([]matcher.MatchResult, 0)
	for _, r := range s.results {
		if r.Status == matcher.StatusIdentified && r.Transaction != nil && r.Divergence == nil {
			final = append(final, r)
		}
	}
	if err := sink.Accept(ctx, final); err != nil {
		return 0, fmt.Errorf("failed to finalize results: %w", err)
	}
	s.finalized = true
	return len(final), nil
}

func (s *Session) indexOf(id string) int {
	for i := range s.results {
		if s.results[i].ID == id {
			return i
		}
	}
	return -1
}

// openTransaction returns the index of an unidentified transaction result
func (s *Session) openTransaction(id string) (int, error) {
	i := s.indexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrResultNotFound, id)
	}
	r := s.results[i]
	if r.Transaction == nil || r.Status != matcher.StatusUnidentified {
		return -1, ErrTransactionUnavailable
	}
	return i, nil
}

func (s *Session) pendingNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range s.results {
		if r.IsGhost() && r.Contributor != nil && !seen[r.Contributor.Name] {
			seen[r.Contributor.Name] = true
			names = append(names, r.Contributor.Name)
		}
	}
	return names
}

// markConfirmed flags the transaction of result i on a fresh copy, so
// results handed out earlier keep their own view
func (s *Session) markConfirmed(i int) {
	tx := *s.results[i].Transaction
	tx.IsConfirmed = true
	s.results[i].Transaction = &tx
}

func (s *Session) removeAt(i int) {
	s.results = append(s.results[:i], s.results[i+1:]...)
}

func (s *Session) learn(ctx context.Context, a matcher.LearnedAssociation) error {
	if s.store == nil || a.NormalizedDescription == "" {
		return nil
	}
	if err := s.store.SaveAssociation(ctx, a); err != nil {
		return fmt.Errorf("failed to save association: %w", err)
	}
	return nil
}
