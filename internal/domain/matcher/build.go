package matcher

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/textnorm"
)

// idNamespace scopes the deterministic (SHA-1, version 5) ids of transactions and ghosts
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("church-reconciler/match"))

// TransactionID derives a stable id from the row's source and content, so
// re-running an unchanged input yields the same ids
func TransactionID(source string, row int, nt ingest.NormalizedTransaction) string {
	key := fmt.Sprintf("tx|%s|%d|%s|%.2f|%s", source, row, nt.Date, nt.Amount, nt.Name)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// GhostID derives a stable id for an unmatched contributor entry
func GhostID(churchID string, index int, c Contributor) string {
	key := fmt.Sprintf("ghost|%s|%d|%s|%.2f|%s", churchID, index, c.NormalizedName, c.Amount, c.Date)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// NewTransaction builds a matching-side transaction from a normalized row
func NewTransaction(source string, row int, nt ingest.NormalizedTransaction, ignoreKeywords []string) Transaction {
	return Transaction{
		ID:                 TransactionID(source, row, nt),
		Date:               nt.Date,
		Description:        nt.Name,
		CleanedDescription: textnorm.CleanDescription(nt.Name, ignoreKeywords),
		Amount:             nt.Amount,
		PaymentMethod:      textnorm.DetectPaymentMethod(nt.Name),
		ContributionType:   textnorm.DetectContributionType(nt.Name),
		Source:             source,
	}
}

// NewContributor builds a contributor entry from a normalized list row
func NewContributor(nt ingest.NormalizedTransaction, ignoreKeywords []string) Contributor {
	cleaned := textnorm.CleanDescription(nt.Name, ignoreKeywords)
	return Contributor{
		Name:             nt.Name,
		CleanedName:      cleaned,
		NormalizedName:   textnorm.NormalizeKey(cleaned),
		Amount:           nt.Amount,
		Date:             nt.Date,
		ContributionType: textnorm.DetectContributionType(nt.Name),
	}
}

// NewAssociation builds the learned association confirming tx as coming from
// contributorName at church
func NewAssociation(tx Transaction, churchID, contributorName string) LearnedAssociation {
	return LearnedAssociation{
		NormalizedDescription: DescriptionKey(tx),
		ChurchID:              churchID,
		ContributorName:       strings.TrimSpace(contributorName),
	}
}

// DescriptionKey is the learned-association key of a transaction
func DescriptionKey(tx Transaction) string {
	return textnorm.NormalizeKey(tx.CleanedDescription)
}

// ContributorKey is the normalized form of a contributor name used to compare
// names across lists and associations
func ContributorKey(name string, ignoreKeywords []string) string {
	return textnorm.NormalizeKey(textnorm.CleanDescription(name, ignoreKeywords))
}
