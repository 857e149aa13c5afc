package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// Association is a stored learned association
type Association struct {
	ID                    int64     `json:"id" bson:"-"`
	NormalizedDescription string    `json:"normalized_description" bson:"normalized_description"`
	ChurchID              string    `json:"church_id" bson:"church_id"`
	ContributorName       string    `json:"contributor_name" bson:"contributor_name"`
	TimesConfirmed        int       `json:"times_confirmed" bson:"times_confirmed"`
	CreatedAt             time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" bson:"updated_at"`
}

// Learned returns the matcher view of the association
func (a Association) Learned() matcher.LearnedAssociation {
	return matcher.LearnedAssociation{
		NormalizedDescription: a.NormalizedDescription,
		ChurchID:              a.ChurchID,
		ContributorName:       a.ContributorName,
	}
}

// Run is a reconciliation run record
type Run struct {
	ID               int64      `json:"id"`
	JobID            string     `json:"job_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Status           string     `json:"status"`
	StatementFiles   int        `json:"statement_files"`
	ContributorFiles int        `json:"contributor_files"`
	Transactions     int        `json:"transactions"`
	Identified       int        `json:"identified"`
	Unidentified     int        `json:"unidentified"`
	Pending          int        `json:"pending"`
	Divergent        int        `json:"divergent"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// RunOutcome holds the counters recorded when a run completes
type RunOutcome struct {
	Status       string
	Transactions int
	Identified   int
	Unidentified int
	Pending      int
	Divergent    int
	ErrorMessage string
}

// LedgerEntry is one finalized IDENTIFICADO result
type LedgerEntry struct {
	ID              int64           `json:"id"`
	RunID           int64           `json:"run_id"`
	ResultID        string          `json:"result_id"`
	ChurchID        string          `json:"church_id"`
	ChurchName      string          `json:"church_name"`
	ContributorName string          `json:"contributor_name"`
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	Similarity      float64         `json:"similarity"`
	CreatedAt       time.Time       `json:"created_at"`
}
