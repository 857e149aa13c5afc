// Package probe identifies the type of an uploaded statement file.
//
// Detection only looks at the head of the file: the first bytes for a
// binary signature and a short text sample for content heuristics.
// Rules are applied in priority order and the first match wins:
//
//  1. %PDF signature            -> PDF  (HIGH)
//  2. ZIP signature + xlsx/xls  -> XLSX (HIGH)
//  3. <OFX or OFXHEADER in text -> OFX  (HIGH)
//  4. csv extension/MIME or a ; / , in the sample -> CSV (LOW)
//  5. txt extension/MIME        -> TXT  (LOW)
//  6. extension-only mapping    -> LOW, otherwise UNKNOWN
package probe

import (
	"encoding/hex"
	"strings"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
)

const (
	signatureBytes = 10
	sampleBytes    = 100

	pdfSignature = "25504446"
	zipSignature = "504b0304"
)

// Result is the outcome of probing a file
type Result struct {
	Type       ingest.FileType   `json:"type"`
	MIMEType   string            `json:"mime_type"`
	Extension  string            `json:"extension"`
	Confidence ingest.Confidence `json:"confidence"`
}

var extensionTypes = map[string]ingest.FileType{
	"pdf":  ingest.FileTypePDF,
	"xlsx": ingest.FileTypeXLSX,
	"xls":  ingest.FileTypeXLSX,
	"csv":  ingest.FileTypeCSV,
	"ofx":  ingest.FileTypeOFX,
	"qfx":  ingest.FileTypeOFX,
	"txt":  ingest.FileTypeTXT,
}

var mimeTypes = map[ingest.FileType]string{
	ingest.FileTypePDF:  "application/pdf",
	ingest.FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ingest.FileTypeCSV:  "text/csv",
	ingest.FileTypeOFX:  "application/x-ofx",
	ingest.FileTypeTXT:  "text/plain",
}

// Detect identifies the file type from its signature, extension and a short text sample
func Detect(file ingest.File) Result {
	ext := file.Extension()
	declared := strings.ToLower(file.MIMEType)
	signature := hex.EncodeToString(head(file.Data, signatureBytes))
	sample := string(head(file.Data, sampleBytes))

	switch {
	case strings.HasPrefix(signature, pdfSignature):
		return newResult(ingest.FileTypePDF, ext, ingest.ConfidenceHigh)
	case strings.HasPrefix(signature, zipSignature) && (ext == "xlsx" || ext == "xls"):
		return newResult(ingest.FileTypeXLSX, ext, ingest.ConfidenceHigh)
	case strings.Contains(sample, "<OFX") || strings.Contains(sample, "OFXHEADER"):
		return newResult(ingest.FileTypeOFX, ext, ingest.ConfidenceHigh)
	case ext == "csv" || strings.Contains(declared, "csv") || strings.ContainsAny(sample, ";,"):
		// Content-based CSV detection is weak, so it never earns HIGH.
		return newResult(ingest.FileTypeCSV, ext, ingest.ConfidenceLow)
	case ext == "txt" || declared == "text/plain":
		return newResult(ingest.FileTypeTXT, ext, ingest.ConfidenceLow)
	}

	if fileType, ok := extensionTypes[ext]; ok {
		return newResult(fileType, ext, ingest.ConfidenceLow)
	}

	return Result{
		Type:       ingest.FileTypeUnknown,
		MIMEType:   file.MIMEType,
		Extension:  ext,
		Confidence: ingest.ConfidenceLow,
	}
}

func newResult(fileType ingest.FileType, ext string, confidence ingest.Confidence) Result {
	return Result{
		Type:       fileType,
		MIMEType:   mimeTypes[fileType],
		Extension:  ext,
		Confidence: confidence,
	}
}

// head returns at most n leading bytes without copying
func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
