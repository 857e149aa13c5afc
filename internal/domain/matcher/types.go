package matcher

import (
	"github.com/eshaffer321/church-reconciler/internal/domain/textnorm"
)

// Status is the reconciliation state of a result
type Status string

const (
	StatusIdentified   Status = "IDENTIFICADO"
	StatusUnidentified Status = "NÃO IDENTIFICADO"
	// StatusPending marks a ghost: a contributor-list entry with no bank transaction
	StatusPending Status = "PENDENTE"
)

// MatchMethod records how a result was identified
type MatchMethod string

const (
	MethodNone      MatchMethod = ""
	MethodAutomatic MatchMethod = "AUTOMATIC"
	MethodManual    MatchMethod = "MANUAL"
	MethodLearned   MatchMethod = "LEARNED"
	MethodAI        MatchMethod = "AI"
	MethodTemplate  MatchMethod = "TEMPLATE"
)

// Valid reports whether m is one of the known methods
func (m MatchMethod) Valid() bool {
	switch m {
	case MethodNone, MethodAutomatic, MethodManual, MethodLearned, MethodAI, MethodTemplate:
		return true
	}
	return false
}

// Config holds matcher configuration
type Config struct {
	SimilarityThreshold float64  // 0-100, default 80
	DayTolerance        int      // days, default 3
	IgnoreKeywords      []string // boilerplate removed before comparing names
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 80,
		DayTolerance:        3,
		IgnoreKeywords:      textnorm.DefaultIgnoreKeywords,
	}
}

// Church is a congregation that receives contributions
type Church struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction is an income-side bank statement row
type Transaction struct {
	ID                 string                 `json:"id"`
	Date               string                 `json:"date"`
	Description        string                 `json:"description"`
	CleanedDescription string                 `json:"cleaned_description"`
	Amount             float64                `json:"amount"`
	PaymentMethod      textnorm.PaymentMethod `json:"payment_method"`
	ContributionType   string                 `json:"contribution_type,omitempty"`
	IsConfirmed        bool                   `json:"is_confirmed"`
	Source             string                 `json:"source,omitempty"`
}

// Contributor is one entry of a church's expected-contribution list
type Contributor struct {
	Name             string  `json:"name"`
	CleanedName      string  `json:"cleaned_name"`
	NormalizedName   string  `json:"normalized_name"`
	Amount           float64 `json:"amount"`
	Date             string  `json:"date,omitempty"`
	ContributionType string  `json:"contribution_type,omitempty"`
}

// ContributorFile is the contributor list of one church
type ContributorFile struct {
	Church       Church        `json:"church"`
	Contributors []Contributor `json:"contributors"`
}

// LearnedAssociation maps a normalized transaction description to the church
// and contributor a human confirmed for it
type LearnedAssociation struct {
	NormalizedDescription string `json:"normalized_description"`
	ChurchID              string `json:"church_id"`
	ContributorName       string `json:"contributor_name"`
}

// Divergence flags a match routed to a different church than the one the
// contributor is historically associated with
type Divergence struct {
	ExpectedChurch Church `json:"expected_church"`
	ActualChurch   Church `json:"actual_church"`
}

// MatchResult is the reconciliation outcome for one transaction, or for one
// unmatched contributor entry (a ghost, with a nil Transaction)
type MatchResult struct {
	ID                string       `json:"id"`
	Transaction       *Transaction `json:"transaction,omitempty"`
	Contributor       *Contributor `json:"contributor,omitempty"`
	Church            *Church      `json:"church,omitempty"`
	Status            Status       `json:"status"`
	Method            MatchMethod  `json:"match_method,omitempty"`
	Similarity        float64      `json:"similarity"`
	ContributorAmount float64      `json:"contributor_amount"`
	Divergence        *Divergence  `json:"divergence,omitempty"`
}

// IsGhost reports whether the result is a contributor entry without a transaction
func (r *MatchResult) IsGhost() bool {
	return r.Status == StatusPending && r.Transaction == nil
}

// Identify assigns a church and contributor and re-derives status, method
// and similarity. Any divergence flag is cleared since a human or an explicit
// rule made the choice.
func (r *MatchResult) Identify(church Church, contributor *Contributor, method MatchMethod, similarity float64) {
	r.Church = &church
	r.Contributor = contributor
	r.Status = StatusIdentified
	r.Method = method
	r.Similarity = similarity
	r.Divergence = nil
	if contributor != nil {
		r.ContributorAmount = contributor.Amount
	}
}

// ProgressFunc receives the number of processed transactions out of total
type ProgressFunc func(current, total int)
