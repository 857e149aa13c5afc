package ingestion

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOrchestrator_ProcessFile_CSV(t *testing.T) {
	// Arrange
	o := NewOrchestrator(DefaultOptions(), testLogger())
	file := ingest.File{
		Name: "extrato.csv",
		Data: []byte("Data;Historico;Valor;Saldo\n" +
			"01/05/2024;SALDO ANTERIOR;;1.000,00\n" +
			"02/05/2024;PIX RECEBIDO JOAO DA SILVA;150,00;1.150,00\n" +
			"03/05/2024;TARIFA PACOTE;-12,90;1.137,10\n"),
	}

	// Act
	result, err := o.ProcessFile(context.Background(), file)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ingest.FileTypeCSV, result.Detection.Type)
	assert.Equal(t, ingest.ConfidenceLow, result.Detection.Confidence)
	assert.Equal(t, []ingest.NormalizedTransaction{
		{Date: "2024-05-02", Name: "PIX RECEBIDO JOAO DA SILVA", Amount: 150},
		{Date: "2024-05-03", Name: "TARIFA PACOTE", Amount: -12.9},
	}, result.Transactions)
	assert.Equal(t, 4, result.Stats.TotalRows)
	assert.Equal(t, 2, result.Stats.RejectedRows)
}

func TestOrchestrator_ProcessFile_OFX(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), testLogger())
	file := ingest.File{
		Name: "extrato.ofx",
		Data: []byte("OFXHEADER:100\n<OFX><BANKTRANLIST>" +
			"<STMTTRN><TRNTYPE>CREDIT<DTPOSTED>20240510<TRNAMT>75.50<MEMO>PIX MARIA</STMTTRN>" +
			"</BANKTRANLIST></OFX>"),
	}

	result, err := o.ProcessFile(context.Background(), file)

	require.NoError(t, err)
	assert.Equal(t, ingest.FileTypeOFX, result.Detection.Type)
	assert.Equal(t, ingest.ConfidenceHigh, result.Detection.Confidence)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, ingest.NormalizedTransaction{Date: "2024-05-10", Name: "PIX MARIA", Amount: 75.5}, result.Transactions[0])
	assert.Equal(t, "CREDIT", result.Drafts[0].Metadata.TransactionType)
}

func TestOrchestrator_ProcessFile_TXT(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), testLogger())
	file := ingest.File{
		Name: "extrato.txt",
		// no ';' or ',' in the head, otherwise the content sniff reports CSV
		Data: []byte("EXTRATO\r\n10/05/2024 DEPOSITO IGREJA 300.00 1300.00\r\n11/05/2024 TARIFA -5.00 1295.00\r\n"),
	}

	result, err := o.ProcessFile(context.Background(), file)

	require.NoError(t, err)
	assert.Equal(t, ingest.FileTypeTXT, result.Detection.Type)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 300.0, result.Transactions[0].Amount)
	assert.Equal(t, "DEPOSITO IGREJA", result.Transactions[0].Name)
}

func TestOrchestrator_ProcessFile_XLSX(t *testing.T) {
	// Arrange
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"10/05/2024", "OFERTA JOAO", "50,00"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"11/05/2024", "DIZIMO MARIA", "120,00"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	o := NewOrchestrator(DefaultOptions(), testLogger())

	// Act
	result, err := o.ProcessFile(context.Background(), ingest.File{Name: "lista.xlsx", Data: buf.Bytes()})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ingest.FileTypeXLSX, result.Detection.Type)
	assert.Equal(t, ingest.ConfidenceHigh, result.Detection.Confidence)
	assert.Equal(t, []ingest.NormalizedTransaction{
		{Date: "2024-05-10", Name: "OFERTA JOAO", Amount: 50},
		{Date: "2024-05-11", Name: "DIZIMO MARIA", Amount: 120},
	}, result.Transactions)
}

func TestOrchestrator_ProcessFile_Unsupported(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), testLogger())

	_, err := o.ProcessFile(context.Background(), ingest.File{Name: "photo.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}})

	assert.ErrorIs(t, err, ingest.ErrUnsupportedFormat)
}

func TestOrchestrator_ProcessFile_ReaderErrorIsFileLocal(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), testLogger())

	_, err := o.ProcessFile(context.Background(), ingest.File{Name: "vazio.csv"})

	assert.ErrorIs(t, err, ingest.ErrEmptyDocument)
}

func TestOrchestrator_ListPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = resolver.ListPolicy
	o := NewOrchestrator(opts, testLogger())

	result, err := o.ProcessFile(context.Background(), ingest.File{
		Name: "membros.csv",
		Data: []byte("JOAO DA SILVA\nMARIA SOUZA\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, []ingest.NormalizedTransaction{
		{Name: "JOAO DA SILVA"},
		{Name: "MARIA SOUZA"},
	}, result.Transactions)
}

func TestOrchestrator_SupportedTypes(t *testing.T) {
	o := NewOrchestrator(DefaultOptions(), testLogger())

	assert.ElementsMatch(t, []ingest.FileType{
		ingest.FileTypePDF, ingest.FileTypeXLSX, ingest.FileTypeCSV, ingest.FileTypeOFX, ingest.FileTypeTXT,
	}, o.SupportedTypes())
}
