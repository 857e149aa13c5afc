package dto

// Multipart field names of POST /api/reconciliations. Contributor files and
// church names are keyed by church id: contributors[igreja-central].
const (
	FieldStatements          = "statements"
	FieldContributorsPrefix  = "contributors["
	FieldChurchNamePrefix    = "church_name["
	FieldSimilarityThreshold = "similarity_threshold"
	FieldDayTolerance        = "day_tolerance"
)

// MatchRequest links a PENDENTE contributor entry to a transaction.
type MatchRequest struct {
	TransactionID string `json:"transaction_id"`
}

// IdentifyRequest assigns a transaction to a church and contributor.
type IdentifyRequest struct {
	ChurchID        string `json:"church_id"`
	ContributorName string `json:"contributor_name"`
}

// RunListParams represents query parameters for listing runs.
type RunListParams struct {
	Limit int `json:"limit"`
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{
		Limit: 20,
	}
}
