package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
)

var (
	central = matcher.Church{ID: "c1", Name: "Central"}
	norte   = matcher.Church{ID: "c2", Name: "Norte"}
)

func sampleResults() []matcher.MatchResult {
	return []matcher.MatchResult{
		{
			ID:          "t1",
			Transaction: &matcher.Transaction{Date: "2024-05-02", Description: "PIX JOAO", Amount: 0.1},
			Contributor: &matcher.Contributor{Name: "JOAO"},
			Church:      &norte,
			Status:      matcher.StatusIdentified,
			Method:      matcher.MethodAutomatic,
			Similarity:  92.5,
		},
		{
			ID:          "t2",
			Transaction: &matcher.Transaction{Date: "2024-05-03", Description: "PIX ANA", Amount: 0.2},
			Contributor: &matcher.Contributor{Name: "ANA"},
			Church:      &central,
			Status:      matcher.StatusIdentified,
			Method:      matcher.MethodManual,
			Similarity:  100,
			Divergence:  &matcher.Divergence{ExpectedChurch: norte, ActualChurch: central},
		},
		{
			ID:          "t3",
			Transaction: &matcher.Transaction{Date: "2024-05-04", Description: "TED DESCONHECIDO", Amount: 33.33},
			Status:      matcher.StatusUnidentified,
		},
		{
			ID:                "g1",
			Contributor:       &matcher.Contributor{Name: "MARIA", Date: "2024-05-05"},
			Church:            &central,
			Status:            matcher.StatusPending,
			ContributorAmount: 200,
		},
	}
}

func TestBuild(t *testing.T) {
	// Arrange
	rep := reconcile.Report{
		Expenses: 2,
		Files: []reconcile.FileReport{
			{Name: "a.csv", RejectedRows: 3},
			{Name: "b.pdf", Error: "unreadable"},
		},
	}

	// Act
	s := Build(sampleResults(), rep)

	// Assert
	assert.Equal(t, 2, s.Identified)
	assert.Equal(t, 1, s.Unidentified)
	assert.Equal(t, 1, s.Ghosts)
	assert.Equal(t, 1, s.Divergent)
	assert.Equal(t, 3, s.ExcludedRows)
	assert.Equal(t, 2, s.Expenses)
	assert.Equal(t, 1, s.FailedFiles)
	// 0.1 + 0.2 stays exact
	assert.Equal(t, "0.30", s.IdentifiedTotal.StringFixed(2))
	assert.Equal(t, "33.33", s.UnidentifiedTotal.StringFixed(2))

	require.Len(t, s.Churches, 2)
	assert.Equal(t, "Central", s.Churches[0].Church.Name)
	assert.Equal(t, 1, s.Churches[0].Identified)
	assert.Equal(t, 1, s.Churches[0].Pending)
	assert.Equal(t, "200.00", s.Churches[0].Expected.StringFixed(2))
	assert.Equal(t, "Norte", s.Churches[1].Church.Name)
	assert.Equal(t, "0.10", s.Churches[1].Received.StringFixed(2))
}

func TestBuild_Empty(t *testing.T) {
	s := Build(nil, reconcile.Report{})

	assert.Zero(t, s.Identified)
	assert.Empty(t, s.Churches)
	assert.Equal(t, "0.00", s.IdentifiedTotal.StringFixed(2))
}

func TestWriteCSV(t *testing.T) {
	// Arrange
	var buf bytes.Buffer

	// Act
	err := WriteCSV(&buf, sampleResults(), reconcile.Report{}, 0)

	// Assert
	require.NoError(t, err)
	r := csv.NewReader(&buf)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, Header, records[0])
	// grouped by church name, unassigned last
	assert.Equal(t, []string{"Central", "IDENTIFICADO", "MANUAL", "2024-05-03", "PIX ANA", "ANA", "0.20", "0.00", "100.0", "expected Norte"}, records[1])
	assert.Equal(t, []string{"Central", "PENDENTE", "", "2024-05-05", "", "MARIA", "", "200.00", "", ""}, records[2])
	assert.Equal(t, "Norte", records[3][0])
	assert.Equal(t, "92.5", records[3][8])
	assert.Equal(t, []string{unassigned, "NÃO IDENTIFICADO", "", "2024-05-04", "TED DESCONHECIDO", "", "33.33", "", "", ""}, records[4])

	// csv.Reader skips the blank separator line
	assert.Equal(t, []string{"summary", "identified", "2", "", "", "", "0.30"}, records[5])
	assert.Equal(t, "total", records[len(records)-2][0])
	assert.Equal(t, []string{"total", "Norte", "1", "", "", "", "0.10", "0.00"}, records[len(records)-1])
}

func TestWriteCSV_CustomDelimiter(t *testing.T) {
	var buf bytes.Buffer

	err := WriteCSV(&buf, nil, reconcile.Report{}, ',')

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "church,status,method")
}
