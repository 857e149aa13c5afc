package readers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
)

// sniffLines is how many leading lines are inspected to pick the delimiter
const sniffLines = 10

var candidateDelimiters = []rune{';', ',', '\t'}

// DelimitedReader reads CSV-like files into rows of cells
type DelimitedReader struct{}

// NewDelimitedReader creates a delimited-text reader
func NewDelimitedReader() *DelimitedReader {
	return &DelimitedReader{}
}

// ReadRaw implements ingest.RawReader. Rows keep their original cell text and
// may have different lengths; blank lines are skipped.
func (r *DelimitedReader) ReadRaw(file ingest.File) (*ingest.RawDocument[[][]string], error) {
	if len(file.Data) == 0 {
		return nil, ingest.ErrEmptyDocument
	}
	text, encoding := decodeText(file.Data)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = SniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		if isBlankRow(record) {
			continue
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, ingest.ErrEmptyDocument
	}
	return ingest.NewRawDocument(file, ingest.FileTypeCSV, rows, encoding), nil
}

// SniffDelimiter picks the candidate delimiter that appears most consistently
// across the first lines. Semicolon wins ties since Brazilian exports use it
// and their amounts contain commas.
func SniffDelimiter(text string) rune {
	lines := strings.Split(text, "\n")
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}

	best, bestScore := ';', 0
	for _, delim := range candidateDelimiters {
		score := 0
		for _, line := range lines {
			if strings.ContainsRune(line, delim) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
