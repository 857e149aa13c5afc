package resolver

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroAmount is the cleaned value returned for anything that is not a usable amount
const ZeroAmount = "0.00"

var (
	timeOfDay   = regexp.MustCompile(`\d{1,2}:\d{2}`)
	numericCell = regexp.MustCompile(`^[-+]?\(?[-+]?[\d.,]*\d[\d.,]*\)?[-+]?[DdCc]?$`)
	notNumeric  = regexp.MustCompile(`[^0-9.,]`)
	whitespace  = regexp.MustCompile(`[\s\x{00A0}]+`)
)

// AmountResolver locates the transaction amount column and cleans
// locale-ambiguous amount strings into "±D.DD".
type AmountResolver struct {
	SampleSize      int
	MinNumericRatio float64
}

// NewAmountResolver creates an amount resolver with the default sample size (100 rows)
// and minimum non-zero ratio (15%)
func NewAmountResolver() *AmountResolver {
	return &AmountResolver{
		SampleSize:      DefaultSampleSize,
		MinNumericRatio: DefaultMinNumericRatio,
	}
}

type columnStats struct {
	count          int
	totalMagnitude float64
}

// IdentifyColumn returns the index of the amount column, or -1 when no column qualifies.
//
// Every non-excluded column of the sample is parsed with a simple BR-biased parser.
// Columns where fewer than MinNumericRatio of the sampled rows hold a non-zero
// number are discarded; of the rest, the column with the lowest average magnitude
// wins, since per-transaction amounts are smaller than running balances.
func (r *AmountResolver) IdentifyColumn(rows [][]string, exclude ...int) int {
	sample := sampleRows(rows, r.SampleSize)
	if len(sample) == 0 {
		return -1
	}

	excluded := indexSet(exclude)
	stats := make(map[int]*columnStats)
	for _, row := range sample {
		for col, cell := range row {
			if excluded[col] {
				continue
			}
			value, ok := parseSimpleAmount(cell)
			if !ok || value == 0 {
				continue
			}
			st, exists := stats[col]
			if !exists {
				st = &columnStats{}
				stats[col] = st
			}
			st.count++
			st.totalMagnitude += math.Abs(value)
		}
	}

	best := -1
	bestAverage := math.MaxFloat64
	minCount := r.MinNumericRatio * float64(len(sample))
	for col := 0; col < maxWidth(sample); col++ {
		st, ok := stats[col]
		if !ok || float64(st.count) < minCount {
			continue
		}
		average := st.totalMagnitude / float64(st.count)
		if average < bestAverage {
			best = col
			bestAverage = average
		}
	}

	return best
}

// Clean converts a raw amount cell into a signed two-decimal string.
// See CleanAmount for the rules.
func (r *AmountResolver) Clean(raw string) string {
	return CleanAmount(raw)
}

// CleanAmount converts a raw amount into "±D.DD" using these rules, in order:
//
//  1. strip "R$" and whitespace; a time of day ("10:30") yields "0.00"
//  2. a literal '-', parentheses or a trailing D/d marks the value negative
//  3. with both ',' and '.', the last one is the decimal separator
//  4. only ',': several commas are thousands separators, one comma is decimal
//  5. only '.': several dots are thousands separators; a single dot followed by
//     exactly three digits is a thousands separator ("1.000"), otherwise decimal
//  6. anything unparseable yields "0.00"
//
// Rule 5 is lossy for genuine three-decimal values ("1.234" becomes 1234).
func CleanAmount(raw string) string {
	s := strings.ReplaceAll(raw, "R$", "")
	s = whitespace.ReplaceAllString(s, "")
	if timeOfDay.MatchString(s) {
		return ZeroAmount
	}

	negative := strings.Contains(s, "-") ||
		(strings.Contains(s, "(") && strings.Contains(s, ")")) ||
		strings.HasSuffix(s, "D") || strings.HasSuffix(s, "d")

	s = notNumeric.ReplaceAllString(s, "")
	s = normalizeSeparators(s)

	value, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount
	}
	value = value.Abs()
	if negative {
		value = value.Neg()
	}
	return value.StringFixed(2)
}

// normalizeSeparators rewrites s so that '.' is the only (decimal) separator
func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case hasComma:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)

	case hasDot:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		fraction := s[strings.Index(s, ".")+1:]
		if len(fraction) == 3 {
			return strings.Replace(s, ".", "", 1)
		}
		return s
	}

	return s
}

// ParseAmount converts a cleaned "±D.DD" string into a float, returning 0 on failure
func ParseAmount(cleaned string) float64 {
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// parseSimpleAmount is the cheap parser used for column scoring: currency
// symbols and spaces are dropped, dots are thousands and the comma is decimal.
func parseSimpleAmount(cell string) (float64, bool) {
	s := strings.NewReplacer("R$", "", "$", "").Replace(cell)
	s = whitespace.ReplaceAllString(s, "")
	if s == "" || !numericCell.MatchString(s) {
		return 0, false
	}

	negative := strings.ContainsAny(s, "-(")
	s = notNumeric.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}
