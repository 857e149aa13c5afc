package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

type fakeSuggester struct {
	name       string
	err        error
	candidates []string
}

func (f *fakeSuggester) SuggestContributor(_ context.Context, _ string, candidates []string) (string, error) {
	f.candidates = candidates
	return f.name, f.err
}

func newTestSession(t *testing.T, repo *storage.MockRepository) *Session {
	t.Helper()
	var store AssociationStore
	if repo != nil {
		store = repo
	}
	session, err := NewRunner(DefaultOptions(), store, testLogger()).Run(context.Background(), testInput(), nil)
	require.NoError(t, err)
	return session
}

func TestSession_Candidates(t *testing.T) {
	// Arrange
	session := newTestSession(t, nil)
	ghost := findGhost(t, session.Results(), "MARIA SOUZA")
	carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

	// Act
	candidates, err := session.Candidates(ghost.ID)

	// Assert
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, carlos.ID, candidates[0].Transaction.ID)
}

func TestSession_Candidates_Errors(t *testing.T) {
	session := newTestSession(t, nil)
	joao := findByDescription(t, session.Results(), "PIX RECEBIDO JOAO DA SILVA")

	_, err := session.Candidates("missing")
	assert.ErrorIs(t, err, ErrResultNotFound)

	_, err = session.Candidates(joao.ID)
	assert.ErrorIs(t, err, ErrNotGhost)
}

func TestSession_ConfirmManualMatch(t *testing.T) {
	// Arrange
	repo := storage.NewMockRepository()
	session := newTestSession(t, repo)
	ghost := findGhost(t, session.Results(), "MARIA SOUZA")
	carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

	// Act
	confirmed, err := session.ConfirmManualMatch(context.Background(), ghost.ID, carlos.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, matcher.StatusIdentified, confirmed.Status)
	assert.Equal(t, matcher.MethodManual, confirmed.Method)
	assert.Equal(t, "c1", confirmed.Church.ID)
	assert.Equal(t, "MARIA SOUZA", confirmed.Contributor.Name)
	assert.True(t, confirmed.Transaction.IsConfirmed)
	assert.False(t, carlos.Transaction.IsConfirmed, "earlier copies keep their view")

	assert.Len(t, session.Results(), 2)
	_, err = session.Result(ghost.ID)
	assert.ErrorIs(t, err, ErrResultNotFound)

	saved, err := repo.GetAssociation(context.Background(), matcher.DescriptionKey(*carlos.Transaction))
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ChurchID)
	assert.Equal(t, "MARIA SOUZA", saved.ContributorName)
}

func TestSession_ConfirmManualMatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ghost   func(results []matcher.MatchResult) string
		tx      func(results []matcher.MatchResult) string
		wantErr error
	}{
		{
			name:    "unknown ghost",
			ghost:   func([]matcher.MatchResult) string { return "missing" },
			tx:      func(r []matcher.MatchResult) string { return findByDescription(t, r, "PIX RECEBIDO CARLOS ALBERTO").ID },
			wantErr: ErrResultNotFound,
		},
		{
			name:    "ghost is a transaction",
			ghost:   func(r []matcher.MatchResult) string { return findByDescription(t, r, "PIX RECEBIDO CARLOS ALBERTO").ID },
			tx:      func(r []matcher.MatchResult) string { return findByDescription(t, r, "PIX RECEBIDO CARLOS ALBERTO").ID },
			wantErr: ErrNotGhost,
		},
		{
			name:    "transaction already identified",
			ghost:   func(r []matcher.MatchResult) string { return findGhost(t, r, "MARIA SOUZA").ID },
			tx:      func(r []matcher.MatchResult) string { return findByDescription(t, r, "PIX RECEBIDO JOAO DA SILVA").ID },
			wantErr: ErrTransactionUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := storage.NewMockRepository()
			session := newTestSession(t, repo)
			results := session.Results()

			_, err := session.ConfirmManualMatch(context.Background(), tt.ghost(results), tt.tx(results))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, repo.SaveAssociationCalls)
			assert.Len(t, session.Results(), 3)
		})
	}
}

func TestSession_ConfirmManualMatch_StoreErrorLeavesResults(t *testing.T) {
	repo := storage.NewMockRepository()
	session := newTestSession(t, repo)
	repo.SaveAssociationErr = errors.New("disk full")
	ghost := findGhost(t, session.Results(), "MARIA SOUZA")
	carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

	_, err := session.ConfirmManualMatch(context.Background(), ghost.ID, carlos.ID)

	require.Error(t, err)
	current, err := session.Result(carlos.ID)
	require.NoError(t, err)
	assert.Equal(t, matcher.StatusUnidentified, current.Status)
	assert.Len(t, session.Results(), 3)
}

func TestSession_IdentifyManually(t *testing.T) {
	t.Run("consumes the pending entry with the same name", func(t *testing.T) {
		// Arrange
		repo := storage.NewMockRepository()
		session := newTestSession(t, repo)
		carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

		// Act
		identified, err := session.IdentifyManually(context.Background(), carlos.ID, "c1", "Maria  Souza")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, matcher.MethodManual, identified.Method)
		assert.Equal(t, "MARIA SOUZA", identified.Contributor.Name)
		assert.Equal(t, 200.0, identified.ContributorAmount)
		assert.Equal(t, 0, session.Report().Summary.Pending)
		assert.Equal(t, 1, repo.SaveAssociationCalls)
	})

	t.Run("synthesizes a contributor not on the list", func(t *testing.T) {
		session := newTestSession(t, nil)
		carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

		identified, err := session.IdentifyManually(context.Background(), carlos.ID, "c1", "Carlos Alberto")

		require.NoError(t, err)
		assert.Equal(t, "Carlos Alberto", identified.Contributor.Name)
		assert.Equal(t, 1, session.Report().Summary.Pending)
	})

	t.Run("unknown church", func(t *testing.T) {
		session := newTestSession(t, nil)
		carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

		_, err := session.IdentifyManually(context.Background(), carlos.ID, "c9", "Carlos")

		assert.ErrorIs(t, err, ErrUnknownChurch)
	})
}

func TestSession_ConfirmResult(t *testing.T) {
	// Arrange: a stored association ties JOAO to another church
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveAssociation(context.Background(), matcher.LearnedAssociation{
		NormalizedDescription: "joao silva oferta",
		ChurchID:              "c2",
		ContributorName:       "JOAO DA SILVA",
	}))
	in := testInput()
	in.Churches = append(in.Churches, ChurchInput{
		Church: matcher.Church{ID: "c2", Name: "Igreja Norte"},
		Files:  []ingest.File{{Name: "norte.csv", Data: []byte("ANA LIMA;50,00;06/05/2024\n")}},
	})
	session, err := NewRunner(DefaultOptions(), repo, testLogger()).Run(context.Background(), in, nil)
	require.NoError(t, err)

	joao := findByDescription(t, session.Results(), "PIX RECEBIDO JOAO DA SILVA")
	require.NotNil(t, joao.Divergence)
	assert.Equal(t, "c2", joao.Divergence.ExpectedChurch.ID)
	assert.Equal(t, "c1", joao.Divergence.ActualChurch.ID)

	// Act
	confirmed, err := session.ConfirmResult(context.Background(), joao.ID)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, confirmed.Divergence)
	assert.True(t, confirmed.Transaction.IsConfirmed)
	assert.Equal(t, 0, session.Report().Summary.Divergent)

	saved, err := repo.GetAssociation(context.Background(), matcher.DescriptionKey(*joao.Transaction))
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ChurchID)
}

func TestSession_ConfirmResult_NotIdentified(t *testing.T) {
	session := newTestSession(t, nil)
	carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

	_, err := session.ConfirmResult(context.Background(), carlos.ID)

	assert.ErrorIs(t, err, ErrNotIdentified)
}

func TestSession_ApplySuggestion(t *testing.T) {
	tests := []struct {
		name           string
		suggester      *fakeSuggester
		wantIdentified bool
		wantErr        bool
	}{
		{name: "suggestion among pending names", suggester: &fakeSuggester{name: "MARIA SOUZA"}, wantIdentified: true},
		{name: "suggestion outside the list", suggester: &fakeSuggester{name: "FULANO"}},
		{name: "no suggestion", suggester: &fakeSuggester{}},
		{name: "suggester error", suggester: &fakeSuggester{err: errors.New("quota exceeded")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := storage.NewMockRepository()
			session := newTestSession(t, repo)
			carlos := findByDescription(t, session.Results(), "PIX RECEBIDO CARLOS ALBERTO")

			// Act
			result, identified, err := session.ApplySuggestion(context.Background(), carlos.ID, tt.suggester)

			// Assert
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"MARIA SOUZA"}, tt.suggester.candidates)
			assert.Equal(t, tt.wantIdentified, identified)
			assert.Equal(t, 0, repo.SaveAssociationCalls, "suggestions are learned only once confirmed")
			if tt.wantIdentified {
				assert.Equal(t, matcher.MethodAI, result.Method)
				assert.Equal(t, "c1", result.Church.ID)
				assert.Len(t, session.Results(), 2)
			} else {
				assert.Equal(t, matcher.StatusUnidentified, result.Status)
				assert.Len(t, session.Results(), 3)
			}
		})
	}
}

func TestSession_Finalize(t *testing.T) {
	// Arrange
	repo := storage.NewMockRepository()
	session := newTestSession(t, repo)
	runID, err := repo.StartRun(context.Background(), "job-1", 1, 1)
	require.NoError(t, err)

	// Act
	n, err := session.Finalize(context.Background(), NewLedgerSink(repo, runID))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, session.Finalized())

	entries, err := repo.ListLedgerEntries(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ChurchID)
	assert.Equal(t, "Igreja Central", entries[0].ChurchName)
	assert.Equal(t, "JOAO DA SILVA", entries[0].ContributorName)
	assert.Equal(t, "150.00", entries[0].Amount.StringFixed(2))
	assert.Equal(t, string(matcher.MethodAutomatic), entries[0].Method)
}

func TestSession_Finalize_SinkError(t *testing.T) {
	session := newTestSession(t, nil)
	sink := SinkFunc(func(context.Context, []matcher.MatchResult) error {
		return errors.New("ledger unavailable")
	})

	_, err := session.Finalize(context.Background(), sink)

	require.Error(t, err)
	assert.False(t, session.Finalized())
}

func TestLedgerEntries_SkipsResultsWithoutTransactionOrChurch(t *testing.T) {
	tx := &matcher.Transaction{ID: "t1", Date: "2024-05-02", Description: "PIX", Amount: 10.005}
	results := []matcher.MatchResult{
		{ID: "t1", Transaction: tx, Church: &centralChurch, Method: matcher.MethodManual, Similarity: 90},
		{ID: "t2", Transaction: tx},
		{ID: "g1", Church: &centralChurch},
	}

	entries := LedgerEntries(results)

	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ResultID)
	assert.Empty(t, entries[0].ContributorName)
	assert.Equal(t, 90.0, entries[0].Similarity)
}
