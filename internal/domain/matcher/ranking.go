package matcher

import (
	"math"
	"sort"
)

// Candidate is a transaction scored against a ghost contributor entry
type Candidate struct {
	Transaction Transaction `json:"transaction"`
	NameScore   float64     `json:"name_score"`
	AmountScore float64     `json:"amount_score"`
	DateScore   float64     `json:"date_score"`
	FinalScore  float64     `json:"final_score"`
}

// neutralScore is used when a side of the comparison is unknown
const neutralScore = 50

// RankCandidates scores every positive transaction against a contributor entry
// for a human to pick from:
//
//	finalScore = nameScore*10 + amountScore + dateScore/10
//	amountScore = max(0, 100 - pctDifference*200)
//	dateScore = 100 - (diffDays/dayTolerance)*50 within tolerance, else 0
//
// nameScore is Similarity (0-100). Unparseable dates and a contributor without
// an amount get a neutral 50. Nothing is filtered out by score; candidates are
// sorted by finalScore descending, ties keeping input order. Callers pass only
// transactions that are still unmatched.
func (m *Matcher) RankCandidates(contributor Contributor, transactions []Transaction) []Candidate {
	out := make([]Candidate, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Amount <= 0 {
			continue
		}

		c := Candidate{
			Transaction: tx,
			NameScore:   Similarity(tx.CleanedDescription, contributor.CleanedName),
			AmountScore: amountScore(tx.Amount, contributor.Amount),
			DateScore:   dateScore(tx.Date, contributor.Date, m.config.DayTolerance),
		}
		c.FinalScore = c.NameScore*10 + c.AmountScore + c.DateScore/10
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

func amountScore(txAmount, expected float64) float64 {
	if expected == 0 {
		return neutralScore
	}
	pct := math.Abs(txAmount-expected) / math.Abs(expected)
	return math.Max(0, 100-pct*200)
}

func dateScore(txDate, expected string, tolerance int) float64 {
	days, known := dayDistance(txDate, expected)
	if !known {
		return neutralScore
	}
	if days > tolerance {
		return 0
	}
	if tolerance <= 0 {
		return 100
	}
	return 100 - (float64(days)/float64(tolerance))*50
}
