// Package resolver discovers which columns of a header-less tabular
// document hold the date, amount and description, normalizes the values
// found there and decides whether a row is a real transaction.
//
// Resolvers never fail: malformed cells resolve to sentinel values
// (InvalidDate, ZeroAmount) and RowValidator drops the row afterwards.
package resolver

const (
	// DefaultSampleSize is how many leading rows are examined for column discovery
	DefaultSampleSize = 100

	// DefaultMinNumericRatio is the share of sampled rows that must hold a
	// non-zero number for a column to be an amount candidate
	DefaultMinNumericRatio = 0.15
)

// sampleRows returns the first n rows (all rows when n <= 0)
func sampleRows(rows [][]string, n int) [][]string {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func maxWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

func indexSet(indexes []int) map[int]bool {
	set := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx >= 0 {
			set[idx] = true
		}
	}
	return set
}

// Cell returns row[idx], or "" when idx is out of range
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
