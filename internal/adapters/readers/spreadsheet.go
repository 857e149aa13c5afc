package readers

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
)

// SpreadsheetReader reads the first sheet of a workbook
type SpreadsheetReader struct{}

// NewSpreadsheetReader creates a spreadsheet reader
func NewSpreadsheetReader() *SpreadsheetReader {
	return &SpreadsheetReader{}
}

// ReadRaw implements ingest.RawReader. Cells are returned as displayed, with
// their number format applied, so locale formatting survives for the resolvers.
func (r *SpreadsheetReader) ReadRaw(file ingest.File) (*ingest.RawDocument[[][]string], error) {
	if len(file.Data) == 0 {
		return nil, ingest.ErrEmptyDocument
	}

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", file.Name, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ingest.ErrEmptyDocument
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	nonEmpty := rows[:0]
	for _, row := range rows {
		if !isBlankRow(row) {
			nonEmpty = append(nonEmpty, row)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, ingest.ErrEmptyDocument
	}

	return ingest.NewRawDocument(file, ingest.FileTypeXLSX, nonEmpty, EncodingUTF8), nil
}
