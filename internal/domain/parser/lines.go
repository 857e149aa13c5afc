package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

var (
	// amounts on statement lines always carry two decimals, which keeps
	// document numbers such as "DOC 123" in the description
	amountToken = regexp.MustCompile(`^(?:R\$)?\(?[-+]?(?:\d{1,3}(?:[.,]\d{3})*|\d+)[.,]\d{2}\)?-?[DCdc]?$`)
	sideMarker  = regexp.MustCompile(`^[DCdc]$`)
	currencySep = regexp.MustCompile(`R\$\s+`)
)

// LineParser splits text lines (PDF, plain text) into cells and parses them
// with a TabularParser
type LineParser struct {
	Tabular *TabularParser
}

// NewLineParser creates a line parser on top of the given tabular parser
func NewLineParser(tabular *TabularParser) *LineParser {
	return &LineParser{Tabular: tabular}
}

// Parse splits every line and delegates to the tabular parser. Row indexes in
// the result are line indexes.
func (p *LineParser) Parse(ctx context.Context, lines []string) (*Result, error) {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, SplitLine(line))
	}
	return p.Tabular.Parse(ctx, rows)
}

// SplitLine breaks a statement line into a leading date cell, a description
// cell and one cell per trailing amount. Lines without a leading date or
// trailing amounts keep those cells empty so column positions stay aligned
// for lines of the same shape.
func SplitLine(line string) []string {
	tokens := strings.Fields(currencySep.ReplaceAllString(line, "R$"))
	if len(tokens) == 0 {
		return []string{""}
	}

	date := ""
	switch {
	case isDateToken(tokens[0]):
		date, tokens = tokens[0], tokens[1:]
	case len(tokens) > 1 && isDateToken(tokens[0]+" "+tokens[1]):
		date, tokens = tokens[0]+" "+tokens[1], tokens[2:]
	}

	var amounts []string
	for len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if sideMarker.MatchString(last) && len(tokens) > 1 && amountToken.MatchString(tokens[len(tokens)-2]) {
			amounts = append([]string{tokens[len(tokens)-2] + last}, amounts...)
			tokens = tokens[:len(tokens)-2]
			continue
		}
		if !amountToken.MatchString(last) {
			break
		}
		amounts = append([]string{last}, amounts...)
		tokens = tokens[:len(tokens)-1]
	}

	cells := []string{date, strings.Join(tokens, " ")}
	return append(cells, amounts...)
}

// isDateToken checks the token against a fixed leap year so "29/02" is accepted
func isDateToken(token string) bool {
	return resolver.ResolveToISO(token, 2000) != resolver.InvalidDate
}
