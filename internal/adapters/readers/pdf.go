package readers

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
)

// DefaultLineGranularity groups text runs whose vertical position rounds to
// the same point into one line
const DefaultLineGranularity = 1.0

// touchingGap is the largest horizontal gap, in points, between two runs of the same word
const touchingGap = 0.5

// PDFReader rebuilds text lines from the glyph runs of each page
type PDFReader struct {
	// LineGranularity is the vertical distance, in points, within which runs
	// are treated as the same line. Statements with loose spacing need more.
	LineGranularity float64
}

// NewPDFReader creates a PDF reader with the given line granularity
func NewPDFReader(granularity float64) *PDFReader {
	if granularity <= 0 {
		granularity = DefaultLineGranularity
	}
	return &PDFReader{LineGranularity: granularity}
}

// ReadRaw implements ingest.RawReader. Lines of all pages are returned in
// reading order.
func (r *PDFReader) ReadRaw(file ingest.File) (doc *ingest.RawDocument[[]string], err error) {
	if len(file.Data) == 0 {
		return nil, ingest.ErrEmptyDocument
	}

	// the pdf library panics on some malformed streams
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("failed to read PDF %s: %v", file.Name, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(file.Data), file.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", file.Name, err)
	}

	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, ClusterLines(page.Content().Text, r.LineGranularity)...)
	}

	if len(lines) == 0 {
		return nil, ingest.ErrEmptyDocument
	}
	return ingest.NewRawDocument(file, ingest.FileTypePDF, lines, EncodingUTF8), nil
}

// ClusterLines groups runs by round(Y / granularity), orders lines top to
// bottom (PDF Y grows upwards) and runs left to right, and joins each line's
// runs with single spaces. Runs that touch the previous run (glyphs of one
// word emitted separately) are glued without a space.
func ClusterLines(texts []pdf.Text, granularity float64) []string {
	if granularity <= 0 {
		granularity = DefaultLineGranularity
	}

	byLine := make(map[int][]pdf.Text)
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		key := int(math.Round(t.Y / granularity))
		byLine[key] = append(byLine[key], t)
	}

	keys := make([]int, 0, len(byLine))
	for k := range byLine {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		runs := byLine[k]
		sort.SliceStable(runs, func(a, b int) bool { return runs[a].X < runs[b].X })

		var sb strings.Builder
		for i, run := range runs {
			if i > 0 {
				prev := runs[i-1]
				if prev.W <= 0 || run.X-(prev.X+prev.W) > touchingGap {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(strings.TrimSpace(run.S))
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
