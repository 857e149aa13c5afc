// Package ingest defines the record shapes that flow through statement
// ingestion: the uploaded file, the raw document an adapter produces, the
// string-typed drafts a parser emits and the terminal normalized transaction.
package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileType identifies the format of an uploaded file
type FileType string

const (
	FileTypePDF     FileType = "PDF"
	FileTypeXLSX    FileType = "XLSX"
	FileTypeCSV     FileType = "CSV"
	FileTypeOFX     FileType = "OFX"
	FileTypeTXT     FileType = "TXT"
	FileTypeUnknown FileType = "UNKNOWN"
)

// Confidence is advisory metadata attached to a detection or a parsed row
type Confidence string

const (
	ConfidenceHigh Confidence = "HIGH"
	ConfidenceLow  Confidence = "LOW"
)

var (
	// ErrUnsupportedFormat is returned when no adapter/parser pair exists for a file
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyDocument is returned when a file has no readable content
	ErrEmptyDocument = errors.New("document is empty")
)

// File is an uploaded file: its bytes, name and declared MIME type
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extension returns the lower-case extension without the leading dot
func (f File) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// Size returns the file length in bytes
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// ReadFile loads a file from disk
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// Metadata describes the source of a raw document
type Metadata struct {
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
}

// RawDocument is the untouched content of one file as read by an adapter.
// Content is rows of cells for spreadsheet-like sources, lines for PDF and
// the raw string for OFX/plain text.
type RawDocument[T any] struct {
	SourceName string    `json:"source_name"`
	FileType   FileType  `json:"file_type"`
	Content    T         `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Metadata   Metadata  `json:"metadata"`
}

// NewRawDocument builds a RawDocument for the given file and content
func NewRawDocument[T any](file File, fileType FileType, content T, encoding string) *RawDocument[T] {
	return &RawDocument[T]{
		SourceName: file.Name,
		FileType:   fileType,
		Content:    content,
		Timestamp:  time.Now(),
		Metadata: Metadata{
			Size:     file.Size(),
			Encoding: encoding,
		},
	}
}

// RawReader reads a file into a RawDocument without altering its content
type RawReader[T any] interface {
	ReadRaw(file File) (*RawDocument[T], error)
}

// DraftMetadata carries parser annotations for a draft
type DraftMetadata struct {
	IsExpense         bool       `json:"is_expense"`
	ParsingConfidence Confidence `json:"parsing_confidence"`
	TransactionType   string     `json:"transaction_type,omitempty"`
	ExternalID        string     `json:"external_id,omitempty"`
}

// TransactionDraft is one surviving source row, still string-typed
type TransactionDraft struct {
	RawDate        string        `json:"raw_date"`
	RawDescription string        `json:"raw_description"`
	RawAmount      string        `json:"raw_amount"`
	SourceRowIndex int           `json:"source_row_index"`
	Metadata       DraftMetadata `json:"metadata"`
}

// NormalizedTransaction is the terminal output of ingestion.
// Amount is positive for income and negative for expenses.
type NormalizedTransaction struct {
	Date   string  `json:"date"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}
