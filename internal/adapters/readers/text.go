// Package readers turns uploaded files into raw documents: rows of cells for
// spreadsheets and delimited text, lines for PDF and the untouched string for
// OFX and plain text. Readers never reformat dates or numbers.
package readers

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
)

const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextReader returns the file content as a single string
type TextReader struct {
	FileType ingest.FileType
}

// NewTextReader creates a reader for OFX or plain-text files
func NewTextReader(fileType ingest.FileType) *TextReader {
	return &TextReader{FileType: fileType}
}

// ReadRaw implements ingest.RawReader
func (r *TextReader) ReadRaw(file ingest.File) (*ingest.RawDocument[string], error) {
	if len(file.Data) == 0 {
		return nil, ingest.ErrEmptyDocument
	}
	text, encoding := decodeText(file.Data)
	return ingest.NewRawDocument(file, r.FileType, text, encoding), nil
}

// decodeText returns data as UTF-8. Bank exports that are not valid UTF-8 are
// almost always Windows-1252, so that is the only fallback.
func decodeText(data []byte) (string, string) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), EncodingUTF8
	}
	return string(decoded), EncodingWindows1252
}
