// Package matcher reconciles bank transactions against the contributor lists
// of one or more churches.
//
// Each income transaction is resolved by the first rule that applies:
//   - Learned: its normalized description has a confirmed association
//   - Automatic: the most similar unused contributor, dated within the day
//     tolerance, scores at or above the similarity threshold
//   - otherwise it is NÃO IDENTIFICADO
//
// Contributor entries left unused become PENDENTE ghosts. An automatic match
// whose contributor is historically associated with another church carries a
// Divergence so a human confirms it before the funds are routed.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	results, err := m.Reconcile(ctx, transactions, files, associations, nil)
package matcher

import (
	"context"
	"math"

	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

// Matcher matches transactions with contributors
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.config
}

type candidate struct {
	church      Church
	contributor *Contributor
	entryIndex  int
}

// Reconcile produces one result per income transaction, in input order,
// followed by one ghost per unused contributor entry, in list order.
// Transactions with Amount <= 0 are expenses and are not reconciled.
// Cancellation is checked between transactions. The inputs are not modified.
func (m *Matcher) Reconcile(
	ctx context.Context,
	transactions []Transaction,
	files []ContributorFile,
	associations []LearnedAssociation,
	progress ProgressFunc,
) ([]MatchResult, error) {
	churches := make(map[string]Church, len(files))
	var candidates []candidate
	for fi := range files {
		churches[files[fi].Church.ID] = files[fi].Church
		for ci := range files[fi].Contributors {
			c := files[fi].Contributors[ci]
			candidates = append(candidates, candidate{
				church:      files[fi].Church,
				contributor: &c,
				entryIndex:  ci,
			})
		}
	}

	learned, historic := m.indexAssociations(associations)
	used := make([]bool, len(candidates))
	results := make([]MatchResult, 0, len(transactions)+len(candidates))

	for i := range transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(i+1, len(transactions))
		}

		tx := transactions[i]
		if tx.Amount <= 0 {
			continue
		}

		result := MatchResult{
			ID:          tx.ID,
			Transaction: &tx,
			Status:      StatusUnidentified,
		}

		if assoc, ok := learned[DescriptionKey(tx)]; ok {
			church, exists := churches[assoc.ChurchID]
			if !exists {
				church = Church{ID: assoc.ChurchID, Name: assoc.ChurchID}
			}
			contributor := m.takeLearnedContributor(candidates, used, assoc)
			result.Identify(church, contributor, MethodLearned, 100)
			if contributor != nil {
				result.Divergence = divergence(historic, churches, contributor.NormalizedName, church)
			}
			results = append(results, result)
			continue
		}

		if best, score := m.bestCandidate(tx, candidates, used); best >= 0 {
			used[best] = true
			c := candidates[best]
			result.Identify(c.church, c.contributor, MethodAutomatic, score)
			result.Divergence = divergence(historic, churches, c.contributor.NormalizedName, c.church)
		}

		results = append(results, result)
	}

	for i, c := range candidates {
		if used[i] {
			continue
		}
		church := c.church
		results = append(results, MatchResult{
			ID:                GhostID(church.ID, c.entryIndex, *c.contributor),
			Contributor:       c.contributor,
			Church:            &church,
			Status:            StatusPending,
			ContributorAmount: c.contributor.Amount,
		})
	}

	return results, nil
}

// divergence returns the mismatch between the church a contributor was
// historically associated with and actual, or nil when they agree or the
// contributor has no history.
func divergence(historic map[string]string, churches map[string]Church, contributorKey string, actual Church) *Divergence {
	expected, ok := historic[contributorKey]
	if !ok || expected == actual.ID {
		return nil
	}
	expectedChurch, exists := churches[expected]
	if !exists {
		expectedChurch = Church{ID: expected, Name: expected}
	}
	return &Divergence{ExpectedChurch: expectedChurch, ActualChurch: actual}
}

// indexAssociations builds the description lookup (a later association for
// the same description replaces an earlier one) and the contributor to
// church history (the first association naming a contributor wins).
func (m *Matcher) indexAssociations(associations []LearnedAssociation) (map[string]LearnedAssociation, map[string]string) {
	learned := make(map[string]LearnedAssociation, len(associations))
	historic := make(map[string]string, len(associations))
	for _, a := range associations {
		if a.NormalizedDescription != "" {
			learned[a.NormalizedDescription] = a
		}
		key := ContributorKey(a.ContributorName, m.config.IgnoreKeywords)
		if _, seen := historic[key]; !seen && key != "" {
			historic[key] = a.ChurchID
		}
	}
	return learned, historic
}

// takeLearnedContributor consumes the first unused entry of the association's
// church with the same normalized name. When the list has no such entry the
// contributor is synthesized from the association.
func (m *Matcher) takeLearnedContributor(candidates []candidate, used []bool, assoc LearnedAssociation) *Contributor {
	key := ContributorKey(assoc.ContributorName, m.config.IgnoreKeywords)
	for i, c := range candidates {
		if !used[i] && c.church.ID == assoc.ChurchID && c.contributor.NormalizedName == key {
			used[i] = true
			return c.contributor
		}
	}
	if assoc.ContributorName == "" {
		return nil
	}
	return &Contributor{
		Name:           assoc.ContributorName,
		CleanedName:    assoc.ContributorName,
		NormalizedName: key,
	}
}

// bestCandidate returns the index and score of the best unused, date-eligible
// candidate scoring at or above the threshold, or -1. Ties go to the smaller
// date distance, then the smaller amount difference, then input order.
func (m *Matcher) bestCandidate(tx Transaction, candidates []candidate, used []bool) (int, float64) {
	best := -1
	var bestScore float64
	bestDays, bestAmount := math.MaxInt, math.MaxFloat64

	for i, c := range candidates {
		if used[i] {
			continue
		}
		// an unknown date on either side is eligible but loses ties to dated candidates
		days, known := dayDistance(tx.Date, c.contributor.Date)
		if !known {
			days = math.MaxInt32
		} else if days > m.config.DayTolerance {
			continue
		}
		score := Similarity(tx.CleanedDescription, c.contributor.CleanedName)
		if score < m.config.SimilarityThreshold {
			continue
		}
		amountDiff := math.Abs(tx.Amount - c.contributor.Amount)

		better := best < 0 ||
			score > bestScore ||
			(score == bestScore && days < bestDays) ||
			(score == bestScore && days == bestDays && amountDiff < bestAmount)
		if better {
			best, bestScore, bestDays, bestAmount = i, score, days, amountDiff
		}
	}

	return best, bestScore
}

// dayDistance returns the absolute day difference between two ISO dates and
// whether both dates were known
func dayDistance(a, b string) (int, bool) {
	da, okA := resolver.ParseISO(a)
	db, okB := resolver.ParseISO(b)
	if !okA || !okB {
		return 0, false
	}
	return int(math.Abs(da.Sub(db).Hours() / 24)), true
}
