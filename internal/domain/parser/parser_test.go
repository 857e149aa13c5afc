package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

func statementRows() [][]string {
	return [][]string{
		{"Data", "Histórico", "Documento", "Valor", "Saldo"},
		{"01/05/2024", "SALDO ANTERIOR", "", "", "1.000,00"},
		{"02/05/2024", "PIX RECEBIDO JOAO DA SILVA", "123456", "150,00", "1.150,00"},
		{"03/05/2024", "TARIFA PACOTE", "", "-12,90", "1.137,10"},
		{"04/05/2024", "TED MARIA SOUZA", "", "200,00", "1.337,10"},
		{"", "TOTAL", "", "337,10", ""},
	}
}

func TestTabularParser_Parse(t *testing.T) {
	// Arrange
	p := NewTabularParser(resolver.StrictPolicy)

	// Act
	result, err := p.Parse(context.Background(), statementRows())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Layout{DateColumn: 0, AmountColumn: 3, NameColumn: 1, AnchorYear: 2024}, result.Layout)

	require.Len(t, result.Drafts, 3)
	assert.Equal(t, ingest.TransactionDraft{
		RawDate:        "2024-05-02",
		RawDescription: "PIX RECEBIDO JOAO DA SILVA",
		RawAmount:      "150.00",
		SourceRowIndex: 2,
		Metadata: ingest.DraftMetadata{
			IsExpense:         false,
			ParsingConfidence: ingest.ConfidenceHigh,
		},
	}, result.Drafts[0])
	assert.Equal(t, "-12.90", result.Drafts[1].RawAmount)
	assert.True(t, result.Drafts[1].Metadata.IsExpense)
	assert.Equal(t, 4, result.Drafts[2].SourceRowIndex)

	assert.Equal(t, 6, result.Stats.TotalRows)
	assert.Equal(t, 3, result.Stats.AcceptedRows)
	assert.Equal(t, 3, result.Stats.RejectedRows)
	assert.Equal(t, 2, result.Stats.RejectReasons[resolver.ReasonInvalidDate])
	assert.Equal(t, 1, result.Stats.RejectReasons[resolver.ReasonBalanceRow])
	assert.Contains(t, result.Rejections, Rejection{Row: 1, Reason: resolver.ReasonBalanceRow})
}

func TestTabularParser_RejectsZeroAmountWithoutCurrency(t *testing.T) {
	rows := append(statementRows(), []string{"05/05/2024", "LANCAMENTO FUTURO", "", "0,00", "1.337,10"})

	result, err := NewTabularParser(resolver.StrictPolicy).Parse(context.Background(), rows)

	require.NoError(t, err)
	for _, d := range result.Drafts {
		assert.NotEqual(t, "LANCAMENTO FUTURO", d.RawDescription)
	}
	assert.Contains(t, result.Rejections, Rejection{Row: 6, Reason: resolver.ReasonZeroAmount})
}

func TestTabularParser_LayoutIsDeterministic(t *testing.T) {
	p := NewTabularParser(resolver.StrictPolicy)
	first := p.DiscoverLayout(statementRows())

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, p.DiscoverLayout(statementRows()))
	}
}

func TestTabularParser_ListPolicyKeepsNameOnlyRows(t *testing.T) {
	rows := [][]string{{"JOAO DA SILVA"}, {"MARIA SOUZA"}, {""}}

	result, err := NewTabularParser(resolver.ListPolicy).Parse(context.Background(), rows)

	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)
	assert.Equal(t, resolver.InvalidDate, result.Drafts[0].RawDate)
	assert.Equal(t, resolver.ZeroAmount, result.Drafts[0].RawAmount)
	assert.Equal(t, 1, result.Stats.RejectReasons[resolver.ReasonEmptyName])
	assert.Equal(t, ingest.ConfidenceLow, result.Drafts[0].Metadata.ParsingConfidence)
}

func TestTabularParser_ListPolicyDropsHeaderRow(t *testing.T) {
	// Arrange
	rows := [][]string{
		{"Nome", "Valor", "Data"},
		{"Joao Silva", "100,00", "10/05/2024"},
		{"Maria Souza", "50,00", "11/05/2024"},
	}

	// Act
	result, err := NewTabularParser(resolver.ListPolicy).Parse(context.Background(), rows)

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)
	assert.Equal(t, "Joao Silva", result.Drafts[0].RawDescription)
	assert.Equal(t, "Maria Souza", result.Drafts[1].RawDescription)
	assert.Equal(t, ingest.ConfidenceHigh, result.Drafts[0].Metadata.ParsingConfidence)
	assert.Equal(t, []Rejection{{Row: 0, Reason: resolver.ReasonNoValues}}, result.Rejections)
}

func TestTabularParser_ListPolicyRowMissingAmountIsLowConfidence(t *testing.T) {
	rows := [][]string{
		{"Joao Silva", "100,00", "10/05/2024"},
		{"Maria Souza", "", "11/05/2024"},
		{"Ana Lima", "75,00", "12/05/2024"},
	}

	result, err := NewTabularParser(resolver.ListPolicy).Parse(context.Background(), rows)

	require.NoError(t, err)
	require.Len(t, result.Drafts, 3)
	assert.Equal(t, ingest.ConfidenceHigh, result.Drafts[0].Metadata.ParsingConfidence)
	assert.Equal(t, ingest.ConfidenceLow, result.Drafts[1].Metadata.ParsingConfidence)
}

func TestTabularParser_Empty(t *testing.T) {
	result, err := NewTabularParser(resolver.StrictPolicy).Parse(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, result.Drafts)
	assert.Equal(t, -1, result.Layout.DateColumn)
}

func TestTabularParser_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTabularParser(resolver.StrictPolicy).Parse(ctx, statementRows())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "date description amount balance",
			line: "10/05/2024 PIX RECEBIDO JOAO 1.234,56 10.000,00",
			want: []string{"10/05/2024", "PIX RECEBIDO JOAO", "1.234,56", "10.000,00"},
		},
		{
			name: "currency prefix and debit marker",
			line: "10/05 TED MARIA R$ 50,00 D",
			want: []string{"10/05", "TED MARIA", "R$50,00D"},
		},
		{
			name: "two token date",
			line: "10 MAI DEPOSITO 100,00",
			want: []string{"10 MAI", "DEPOSITO", "100,00"},
		},
		{
			name: "document numbers stay in the description",
			line: "DOC 123 PAGAMENTO",
			want: []string{"", "DOC 123 PAGAMENTO"},
		},
		{
			name: "blank",
			line: "   ",
			want: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line))
		})
	}
}

func TestLineParser_Parse(t *testing.T) {
	// Arrange
	lines := []string{
		"EXTRATO CONTA CORRENTE",
		"10/05/2024 PIX RECEBIDO JOAO 150,00 1.150,00",
		"11/05/2024 TARIFA -12,90 1.137,10",
		"SALDO FINAL 1.137,10",
	}
	p := NewLineParser(NewTabularParser(resolver.StrictPolicy))

	// Act
	result, err := p.Parse(context.Background(), lines)

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)
	assert.Equal(t, "PIX RECEBIDO JOAO", result.Drafts[0].RawDescription)
	assert.Equal(t, "150.00", result.Drafts[0].RawAmount)
	assert.Equal(t, "2024-05-11", result.Drafts[1].RawDate)
	assert.Equal(t, "-12.90", result.Drafts[1].RawAmount)
	assert.Equal(t, 2, result.Stats.RejectedRows)
}

const sgmlStatement = `OFXHEADER:100
DATA:OFXSGML
<OFX>
<BANKMSGSRSV1><STMTTRNRS><STMTRS>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240510120000[-3:BRT]
<TRNAMT>150.00
<FITID>A1
<NAME>JOAO DA SILVA
<MEMO>PIX RECEBIDO JOAO
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240511
<TRNAMT>-12,90
<FITID>A2
<NAME>TARIFA
<STMTTRN>
<TRNTYPE>OTHER
<MEMO>SEM DATA NEM VALOR
</BANKTRANLIST>
</STMTRS></STMTTRNRS></BANKMSGSRSV1>
</OFX>`

func TestOFXParser_SGML(t *testing.T) {
	// Act
	result, err := NewOFXParser().Parse(context.Background(), sgmlStatement)

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)

	assert.Equal(t, ingest.TransactionDraft{
		RawDate:        "2024-05-10",
		RawDescription: "PIX RECEBIDO JOAO",
		RawAmount:      "150.00",
		SourceRowIndex: 0,
		Metadata: ingest.DraftMetadata{
			ParsingConfidence: ingest.ConfidenceHigh,
			TransactionType:   "CREDIT",
			ExternalID:        "A1",
		},
	}, result.Drafts[0])

	assert.Equal(t, "TARIFA", result.Drafts[1].RawDescription, "NAME is the fallback for MEMO")
	assert.Equal(t, "-12.90", result.Drafts[1].RawAmount)
	assert.True(t, result.Drafts[1].Metadata.IsExpense)

	assert.Equal(t, 3, result.Stats.TotalRows)
	assert.Equal(t, 1, result.Stats.RejectReasons[ReasonMissingFields])
}

func TestOFXParser_XML(t *testing.T) {
	content := `<?xml version="1.0"?>
<OFX><BANKTRANLIST>
<STMTTRN><TRNAMT>10.5</TRNAMT><DTPOSTED>20240101</DTPOSTED><MEMO/><NAME>OFERTA</NAME></STMTTRN>
<STMTTRN><TRNAMT>20</TRNAMT><DTPOSTED>20240102</DTPOSTED><MEMO>first</MEMO><MEMO>second</MEMO></STMTTRN>
</BANKTRANLIST></OFX>`

	result, err := NewOFXParser().Parse(context.Background(), content)

	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)
	assert.Equal(t, "OFERTA", result.Drafts[0].RawDescription)
	assert.Equal(t, "10.50", result.Drafts[0].RawAmount)
	assert.Equal(t, "2024-01-01", result.Drafts[0].RawDate)
	assert.Equal(t, "first", result.Drafts[1].RawDescription, "first duplicate wins")
	assert.Equal(t, "20.00", result.Drafts[1].RawAmount)
}

func TestOFXParser_KeepsBlockWithOnlyAmount(t *testing.T) {
	content := "<OFX><STMTTRN><TRNAMT>5.00<MEMO>SEM DATA</STMTTRN></OFX>"

	result, err := NewOFXParser().Parse(context.Background(), content)

	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)
	assert.Equal(t, resolver.InvalidDate, result.Drafts[0].RawDate)
}
