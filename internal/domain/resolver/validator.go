package resolver

import (
	"regexp"
	"strings"
)

// RejectReason explains why a row was dropped
type RejectReason string

const (
	ReasonNone        RejectReason = ""
	ReasonInvalidDate RejectReason = "invalid_date"
	ReasonEmptyName   RejectReason = "empty_name"
	ReasonZeroAmount  RejectReason = "zero_amount"
	ReasonBalanceRow  RejectReason = "balance_row"
	ReasonNoValues    RejectReason = "no_date_or_amount"
)

var (
	currencyToken = regexp.MustCompile(`(?i)R\$|US\$|\$|€|£|\bBRL\b`)
	balanceLabel  = regexp.MustCompile(`(?i)^\s*(saldo|total|subtotal|s\s*a\s*l\s*d\s*o)\b`)
)

// Policy selects which fields a row must carry to be kept
type Policy struct {
	RequireDate   bool
	RequireAmount bool
	// RequireDateOrAmount keeps a row only if it has a valid date or a
	// non-zero amount. Set by ForLayout on relaxed policies.
	RequireDateOrAmount bool
}

// ForLayout adapts the policy to the columns discovered in a document. A
// relaxed policy over a document with a date or amount column rejects rows
// carrying neither, which drops header rows like "Nome;Valor;Data" while
// name-only lists stay untouched.
func (p Policy) ForLayout(hasDateColumn, hasAmountColumn bool) Policy {
	if (p.RequireDate && p.RequireAmount) || !(hasDateColumn || hasAmountColumn) {
		return p
	}
	p.RequireDateOrAmount = true
	return p
}

// StrictPolicy is used for bank statements
var StrictPolicy = Policy{RequireDate: true, RequireAmount: true}

// ListPolicy is used for contributor lists, which often only carry names
var ListPolicy = Policy{}

// RowValidator rejects rows that are not transactions: headers, footers,
// balance and total lines, and rows corrupted beyond recovery.
type RowValidator struct {
	Policy Policy
}

// NewRowValidator creates a validator with the given policy
func NewRowValidator(policy Policy) *RowValidator {
	return &RowValidator{Policy: policy}
}

// IsValid reports whether the resolved values describe a transaction
func (v *RowValidator) IsValid(isoDate, rawName, amount string, row []string) bool {
	return v.Validate(isoDate, rawName, amount, row) == ReasonNone
}

// Validate returns ReasonNone for a valid row, otherwise the first rule it breaks:
// invalid date, empty name, a balance/total label, a "0.00" amount with no
// currency marker anywhere in the row, or neither date nor amount.
func (v *RowValidator) Validate(isoDate, rawName, amount string, row []string) RejectReason {
	if v.Policy.RequireDate && !validDate(isoDate) {
		return ReasonInvalidDate
	}
	if strings.TrimSpace(rawName) == "" {
		return ReasonEmptyName
	}
	if balanceLabel.MatchString(rawName) {
		return ReasonBalanceRow
	}
	if v.Policy.RequireAmount && !hasAmount(amount, row) {
		return ReasonZeroAmount
	}
	if v.Policy.RequireDateOrAmount && !validDate(isoDate) && !hasAmount(amount, row) {
		return ReasonNoValues
	}
	return ReasonNone
}

// FullyValidated reports whether a row carries both a valid date and an
// amount, whatever the policy asked for.
func (v *RowValidator) FullyValidated(isoDate, amount string, row []string) bool {
	return validDate(isoDate) && hasAmount(amount, row)
}

func validDate(isoDate string) bool {
	return isoDate != InvalidDate && isoDate != ""
}

// hasAmount is false for a "0.00" amount with no currency marker in the row
func hasAmount(amount string, row []string) bool {
	return amount != ZeroAmount || hasCurrencyToken(row)
}

func hasCurrencyToken(row []string) bool {
	for _, cell := range row {
		if currencyToken.MatchString(cell) {
			return true
		}
	}
	return false
}
