package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/church-reconciler/internal/api"
	"github.com/eshaffer321/church-reconciler/internal/api/dto"
	"github.com/eshaffer321/church-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/church-reconciler/internal/application/service"
	"github.com/eshaffer321/church-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/church-reconciler/internal/infrastructure/storage"
)

// =============================================================================
// API Integration Tests
// =============================================================================
// These tests use a real SQLite database to test the full stack:
// HTTP upload → Router → Service → Runner → Session → Storage → SQLite

const (
	integrationStatement = "Data;Historico;Valor;Saldo\n" +
		"02/05/2024;PIX RECEBIDO JOAO DA SILVA;150,00;1.150,00\n" +
		"03/05/2024;TARIFA PACOTE;-12,90;1.137,10\n" +
		"04/05/2024;PIX RECEBIDO CARLOS ALBERTO;80,00;1.217,10\n"
	integrationContributors = "JOAO DA SILVA;150,00;02/05/2024\n" +
		"MARIA SOUZA;200,00;05/05/2024\n"
)

func createTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "api_integration.db"))
	require.NoError(t, err)

	svc := service.NewReconciliationService(reconcile.DefaultOptions(), store, testLogger())
	server := api.NewServer(api.DefaultConfig(), store, svc, nil, testLogger())
	ts := httptest.NewServer(server.Router())

	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts, store
}

func uploadSample(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(dto.FieldStatements, "extrato.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, integrationStatement)
	fw, err = mw.CreateFormFile("contributors[central]", "lista.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, integrationContributors)
	require.NoError(t, mw.WriteField("church_name[central]", "Igreja Central"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/reconciliations", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started dto.StartReconciliationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))

	require.Eventually(t, func() bool {
		var job dto.JobResponse
		getJSON(t, ts.URL+"/api/reconciliations/"+started.JobID, &job)
		return job.Status == string(service.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	return started.JobID
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _ := createTestServer(t)

	var health dto.HealthResponse
	getJSON(t, ts.URL+"/health", &health)

	assert.Equal(t, "ok", health.Status)
}

func TestAPI_Integration_ListRuns_Empty(t *testing.T) {
	ts, _ := createTestServer(t)

	var result dto.RunListResponse
	getJSON(t, ts.URL+"/api/runs", &result)

	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Runs)
}

func TestAPI_Integration_ReconcileAndFinalize(t *testing.T) {
	ts, _ := createTestServer(t)
	jobID := uploadSample(t, ts)
	base := ts.URL + "/api/reconciliations/" + jobID

	var results dto.ResultsResponse
	getJSON(t, base+"/results", &results)
	require.Equal(t, 3, results.Count)
	assert.Equal(t, 1, results.Summary.Identified)

	var ghostID, carlosID string
	for _, r := range results.Results {
		if r.Status == matcher.StatusPending {
			ghostID = r.ID
		}
		if r.Transaction != nil && strings.Contains(r.Transaction.Description, "CARLOS") {
			carlosID = r.ID
		}
	}
	require.NotEmpty(t, ghostID)
	require.NotEmpty(t, carlosID)

	t.Run("manual match is learned", func(t *testing.T) {
		resp := postJSON(t, base+"/results/"+ghostID+"/match", `{"transaction_id": "`+carlosID+`"}`)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var associations dto.AssociationListResponse
		getJSON(t, ts.URL+"/api/associations", &associations)
		require.Equal(t, 1, associations.Count)
		assert.Equal(t, "central", associations.Associations[0].ChurchID)
		assert.Equal(t, "MARIA SOUZA", associations.Associations[0].ContributorName)
	})

	t.Run("finalize writes the ledger", func(t *testing.T) {
		resp := postJSON(t, base+"/finalize", "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var finalized dto.FinalizeResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&finalized))
		assert.Equal(t, 2, finalized.Entries)

		var ledger dto.LedgerResponse
		getJSON(t, ts.URL+"/api/runs/"+strconv.FormatInt(finalized.RunID, 10)+"/ledger", &ledger)
		assert.Equal(t, 2, ledger.Count)
		assert.Equal(t, "230.00", ledger.Total)
	})

	t.Run("run history is recorded", func(t *testing.T) {
		var runs dto.RunListResponse
		getJSON(t, ts.URL+"/api/runs", &runs)
		require.Equal(t, 1, runs.Count)
		assert.Equal(t, jobID, runs.Runs[0].JobID)
		assert.Equal(t, storage.RunStatusCompleted, runs.Runs[0].Status)
		assert.Equal(t, 2, runs.Runs[0].Transactions)
	})

	t.Run("export lists every result", func(t *testing.T) {
		resp, err := http.Get(base + "/export")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "Igreja Central;IDENTIFICADO;MANUAL")
		assert.Contains(t, string(body), "PIX RECEBIDO JOAO DA SILVA")
	})
}

func TestAPI_Integration_LearnedAssociationCarriesOver(t *testing.T) {
	ts, _ := createTestServer(t)

	first := uploadSample(t, ts)
	var results dto.ResultsResponse
	getJSON(t, ts.URL+"/api/reconciliations/"+first+"/results?status="+url.QueryEscape(string(matcher.StatusUnidentified)), &results)
	require.Equal(t, 1, results.Count)

	resp := postJSON(t, ts.URL+"/api/reconciliations/"+first+"/results/"+results.Results[0].ID+"/identify",
		`{"church_id": "central", "contributor_name": "MARIA SOUZA"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := uploadSample(t, ts)
	getJSON(t, ts.URL+"/api/reconciliations/"+second+"/results?status=IDENTIFICADO", &results)

	assert.Equal(t, 2, results.Count)
	assert.Equal(t, 1, results.Summary.ByMethod[matcher.MethodLearned])
}
