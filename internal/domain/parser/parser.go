// Package parser turns raw documents into transaction drafts.
//
// TabularParser handles rows of cells (CSV, spreadsheets), LineParser splits
// PDF and plain-text lines into cells before delegating to it, and OFXParser
// reads the STMTTRN blocks of an OFX statement.
package parser

import (
	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

// ReasonMissingFields marks an OFX block with neither date nor amount
const ReasonMissingFields resolver.RejectReason = "missing_fields"

// Layout records which columns were chosen for a document. -1 means none.
type Layout struct {
	DateColumn   int `json:"date_column"`
	AmountColumn int `json:"amount_column"`
	NameColumn   int `json:"name_column"`
	AnchorYear   int `json:"anchor_year"`
}

// Rejection is one source row dropped by validation
type Rejection struct {
	Row    int                   `json:"row"`
	Reason resolver.RejectReason `json:"reason"`
}

// Stats counts what happened to the rows of a document
type Stats struct {
	TotalRows     int                           `json:"total_rows"`
	AcceptedRows  int                           `json:"accepted_rows"`
	RejectedRows  int                           `json:"rejected_rows"`
	RejectReasons map[resolver.RejectReason]int `json:"reject_reasons,omitempty"`
}

// Result is the output of parsing one document
type Result struct {
	Drafts     []ingest.TransactionDraft
	Layout     Layout
	Stats      Stats
	Rejections []Rejection
}

func newResult(total int) *Result {
	return &Result{
		Layout: Layout{DateColumn: -1, AmountColumn: -1, NameColumn: -1},
		Stats: Stats{
			TotalRows:     total,
			RejectReasons: make(map[resolver.RejectReason]int),
		},
	}
}

func (r *Result) accept(draft ingest.TransactionDraft) {
	r.Drafts = append(r.Drafts, draft)
	r.Stats.AcceptedRows++
}

func (r *Result) reject(row int, reason resolver.RejectReason) {
	r.Rejections = append(r.Rejections, Rejection{Row: row, Reason: reason})
	r.Stats.RejectedRows++
	r.Stats.RejectReasons[reason]++
}
