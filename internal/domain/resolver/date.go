package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// InvalidDate is returned by ResolveToISO when a value is not a date
const InvalidDate = "INVALID_DATE"

var (
	// 10/05/2024, 10-05-24, 10.05.2024, optionally followed by a time of day
	numericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:[\sT]+\d{1,2}:\d{2}(?::\d{2})?)?$`)
	// 10/05 without a year; only '/' so amounts such as 10.05 are never read as dates
	shortDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
	// 2024-05-10 or 2024/05/10 with an optional time part
	isoDate = regexp.MustCompile(`^(\d{4})[\-/](\d{1,2})[\-/](\d{1,2})(?:[\sT].*)?$`)
	// OFX DTPOSTED: 20240510, 20240510120000, 20240510120000.000[-3:BRT]
	compactDate = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})(?:\d{6})?(?:\.\d+)?(?:\[.*\])?$`)
	// 10/mai/2024, 10 MAI 2024, 10-May, 10 mai
	namedMonthDate = regexp.MustCompile(`^(\d{1,2})[\s/.\-]+([A-Za-zÀ-ÿ]{3,9})\.?(?:[\s/.\-]+(\d{4}|\d{2}))?$`)
	// any explicit year inside a date-looking token, used for anchor discovery
	yearToken = regexp.MustCompile(`\b\d{1,2}[/.\-](?:\d{1,2}|[A-Za-z]{3})[/.\-](\d{4}|\d{2})\b|\b(\d{4})[\-/]\d{1,2}[\-/]\d{1,2}\b`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "fev": time.February, "feb": time.February,
	"mar": time.March, "abr": time.April, "apr": time.April,
	"mai": time.May, "may": time.May, "jun": time.June,
	"jul": time.July, "ago": time.August, "aug": time.August,
	"set": time.September, "sep": time.September, "out": time.October,
	"oct": time.October, "nov": time.November, "dez": time.December,
	"dec": time.December,
}

// DateResolver finds the date column of a document and converts its cells to ISO-8601
type DateResolver struct {
	SampleSize int
	now        func() time.Time
}

// NewDateResolver creates a date resolver that falls back to the current year
func NewDateResolver() *DateResolver {
	return &DateResolver{
		SampleSize: DefaultSampleSize,
		now:        time.Now,
	}
}

// WithClock returns a copy of the resolver using the given clock for the fallback year
func (r *DateResolver) WithClock(now func() time.Time) *DateResolver {
	clone := *r
	clone.now = now
	return &clone
}

// DiscoverAnchorYear infers the year for dates that omit it by majority vote over
// the explicit years found in the sample. Ties go to the most recent year; with
// no explicit year at all the current year is used.
func (r *DateResolver) DiscoverAnchorYear(rows [][]string) int {
	fallback := r.now().Year()
	votes := make(map[int]int)

	for _, row := range sampleRows(rows, r.SampleSize) {
		for _, cell := range row {
			for _, m := range yearToken.FindAllStringSubmatch(cell, -1) {
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				year, err := strconv.Atoi(raw)
				if err != nil {
					continue
				}
				if len(raw) == 2 {
					year += fallback / 100 * 100
				}
				votes[year]++
			}
		}
	}

	anchor, bestVotes := fallback, 0
	for year, count := range votes {
		if count > bestVotes || (count == bestVotes && year > anchor) {
			anchor, bestVotes = year, count
		}
	}
	return anchor
}

// IdentifyColumn returns the column with the most date-like cells in the sample,
// or -1 when no cell looks like a date. Ties go to the leftmost column.
func (r *DateResolver) IdentifyColumn(rows [][]string) int {
	sample := sampleRows(rows, r.SampleSize)
	anchor := r.now().Year()

	counts := make([]int, maxWidth(sample))
	for _, row := range sample {
		for col, cell := range row {
			if ResolveToISO(cell, anchor) != InvalidDate {
				counts[col]++
			}
		}
	}

	best, bestCount := -1, 0
	for col, count := range counts {
		if count > bestCount {
			best, bestCount = col, count
		}
	}
	return best
}

// ResolveToISO converts a raw date into YYYY-MM-DD. Two-digit years take the
// anchor year's century and year-less dates take the anchor year itself.
// Malformed input returns InvalidDate.
func (r *DateResolver) ResolveToISO(raw string, anchorYear int) string {
	return ResolveToISO(raw, anchorYear)
}

// ResolveToISO is the stateless form of DateResolver.ResolveToISO
func ResolveToISO(raw string, anchorYear int) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return InvalidDate
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		return buildISO(atoi(m[3]), atoi(m[2]), atoi(m[1]), len(m[3]) == 2, anchorYear)
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return buildISO(atoi(m[1]), atoi(m[2]), atoi(m[3]), false, anchorYear)
	}
	if m := compactDate.FindStringSubmatch(s); m != nil {
		return buildISO(atoi(m[1]), atoi(m[2]), atoi(m[3]), false, anchorYear)
	}
	if m := shortDate.FindStringSubmatch(s); m != nil {
		return buildISO(anchorYear, atoi(m[2]), atoi(m[1]), false, anchorYear)
	}
	if m := namedMonthDate.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[strings.ToLower(m[2])[:3]]
		if !ok {
			return InvalidDate
		}
		year := anchorYear
		if m[3] != "" {
			year = atoi(m[3])
		}
		return buildISO(year, int(month), atoi(m[1]), len(m[3]) == 2, anchorYear)
	}

	return InvalidDate
}

// ParseISO parses a YYYY-MM-DD string produced by ResolveToISO
func ParseISO(iso string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func buildISO(year, month, day int, shortYear bool, anchorYear int) string {
	if shortYear {
		year += anchorYear / 100 * 100
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 {
		return InvalidDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject instead
	if t.Day() != day || int(t.Month()) != month {
		return InvalidDate
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
