package resolver

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// long digit runs are account, document or authentication numbers
	longDigits = regexp.MustCompile(`\b\d{5,}\b`)
	// masked CPF/CNPJ such as ***.123.456-** or 12.345.678/0001-90
	maskedID = regexp.MustCompile(`[\d*]{2,3}\.[\d*]{3}\.[\d*]{3}(?:/[\d*]{4})?-[\d*]{2}`)
	// separators left dangling once numbers are removed
	danglingPunct = regexp.MustCompile(`(^|\s)[-/|:;*#]+(\s|$)`)
)

// NameResolver finds the description column and produces display names
type NameResolver struct {
	SampleSize int
}

// NewNameResolver creates a name resolver with the default sample size
func NewNameResolver() *NameResolver {
	return &NameResolver{SampleSize: DefaultSampleSize}
}

// IdentifyColumn returns the non-excluded column with the longest average run of
// alphabetic tokens, or -1 when no column holds any text. Ties go to the leftmost column.
func (r *NameResolver) IdentifyColumn(rows [][]string, exclude ...int) int {
	sample := sampleRows(rows, r.SampleSize)
	if len(sample) == 0 {
		return -1
	}

	excluded := indexSet(exclude)
	totals := make([]int, maxWidth(sample))
	for _, row := range sample {
		for col, cell := range row {
			if !excluded[col] {
				totals[col] += alphabeticRun(cell)
			}
		}
	}

	best, bestScore := -1, 0.0
	for col, total := range totals {
		average := float64(total) / float64(len(sample))
		if total > 0 && average > bestScore {
			best, bestScore = col, average
		}
	}
	return best
}

// Clean produces a display name: identifiers and long numbers are stripped
// and whitespace is collapsed.
func (r *NameResolver) Clean(raw string) string {
	return CleanName(raw)
}

// CleanName is the stateless form of NameResolver.Clean
func CleanName(raw string) string {
	s := maskedID.ReplaceAllString(raw, " ")
	s = longDigits.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	for danglingPunct.MatchString(s) {
		s = danglingPunct.ReplaceAllString(s, " ")
		s = strings.Join(strings.Fields(s), " ")
	}
	return strings.TrimSpace(s)
}

// alphabeticRun measures the longest run of consecutive alphabetic tokens in
// a cell, counted in letters.
func alphabeticRun(cell string) int {
	best, current := 0, 0
	for _, token := range strings.Fields(cell) {
		letters := countLetters(token)
		if letters > 0 && isAlphabeticToken(token) {
			current += letters
			if current > best {
				best = current
			}
			continue
		}
		current = 0
	}
	return best
}

func isAlphabeticToken(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) && !strings.ContainsRune(".-'&/", r) {
			return false
		}
	}
	return true
}

func countLetters(token string) int {
	n := 0
	for _, r := range token {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
