package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rezonia/nfe-processor/internal/model"
	"github.com/rezonia/nfe-processor/internal/server"
	"github.com/rezonia/nfe-processor/internal/tax"
)

func newTestServer() *server.Server {
	config := &server.Config{
		Address: ":8080",
		Logger:  zap.NewNop(),
	}
	return server.NewServer(config)
}

func readFixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "parser", "xml", "testdata", name))
	require.NoError(t, err)
	return data
}

func do(srv *server.Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) server.ErrorResponse {
	t.Helper()
	var resp server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
	assert.NotEmpty(t, w.Header().Get(server.RequestIDHeader))
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(server.RequestIDHeader))

	first := do(srv, http.MethodGet, "/health", nil).Header().Get(server.RequestIDHeader)
	second := do(srv, http.MethodGet, "/health", nil).Header().Get(server.RequestIDHeader)
	assert.NotEqual(t, first, second)
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/nfe/parse", readFixture(t, "nfe_proc_sp_rj.xml"))
	require.Equal(t, http.StatusOK, w.Code)

	var response server.ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.NotNil(t, response.Document)
	assert.Equal(t, "35240112345678000195550010000012341123456780", response.Document.AccessKey)
	assert.Equal(t, "SP", response.Document.Issuer.Address.State)
	require.NotNil(t, response.Document.Recipient)
	assert.Equal(t, "RJ", response.Document.Recipient.Address.State)
	assert.Len(t, response.Document.LineItems, 2)
	assert.Equal(t, "10650", response.Document.Totals.GrandTotal.String())
	assert.Len(t, response.Diagnostics, 11)
	assert.True(t, response.Summary.Valid)
}

func TestParseEndpoint_EmptyBody(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/nfe/parse", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty request body", decodeError(t, w).Error)
}

func TestParseEndpoint_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not xml", "not xml", model.ErrCodeMalformed},
		{"other root", "<Invoice><Number>1</Number></Invoice>", model.ErrCodeMissingRoot},
		{"no infNFe", "<NFe><other/></NFe>", model.ErrCodeMissingInfoBlock},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/nfe/parse", []byte(tt.body))
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Details)
			assert.Equal(t, w.Header().Get(server.RequestIDHeader), resp.RequestID)
		})
	}
}

func TestParseEndpoint_BodyTooLarge(t *testing.T) {
	srv := server.NewServer(&server.Config{Logger: zap.NewNop(), MaxBodyBytes: 64})

	w := do(srv, http.MethodPost, "/api/v1/nfe/parse", readFixture(t, "nfe_minimal.xml"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/nfe/validate", readFixture(t, "nfe_minimal.xml"))
	require.Equal(t, http.StatusOK, w.Code)

	var response server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.True(t, response.Valid)
	assert.Equal(t, 9, response.Summary.Success)
	assert.Equal(t, 1, response.Summary.Warnings)
	assert.Len(t, response.Diagnostics, 10)
	assert.Equal(t, model.SeverityWarning, response.Diagnostics[1].Severity)
}

func TestValidateEndpoint_ProductSumMismatch(t *testing.T) {
	srv := newTestServer()

	body := strings.Replace(string(readFixture(t, "nfe_minimal.xml")),
		"<vProd>250.00</vProd>\n        <vNF>", "<vProd>260.00</vProd>\n        <vNF>", 1)

	w := do(srv, http.MethodPost, "/api/v1/nfe/validate", []byte(body))
	require.Equal(t, http.StatusOK, w.Code)

	var response server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Valid)
	assert.Equal(t, 1, response.Summary.Errors)

	for _, d := range response.Diagnostics {
		if d.Field == "totals.product_total" {
			require.NotNil(t, d.Delta)
			assert.Equal(t, "10", d.Delta.String())
		}
	}
}

func TestValidateEndpoint_InvalidXML(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/nfe/validate", []byte("<nfeProc>"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response server.ValidationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Valid)
	assert.Len(t, response.Errors, 1)
}

func TestDocumentDIFALEndpoint(t *testing.T) {
	srv := newTestServer()
	body := readFixture(t, "nfe_proc_sp_rj.xml")

	w := do(srv, http.MethodPost, "/api/v1/nfe/difal", body)
	require.Equal(t, http.StatusOK, w.Code)

	var response server.DocumentDifalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "35240112345678000195550010000012341123456780", response.AccessKey)
	assert.Equal(t, 12.0, response.Input.InterstateRate)
	require.NotNil(t, response.Result)
	assert.Equal(t, tax.MethodologyDualBase, response.Result.Methodology)
	assert.InDelta(t, 13312.5, response.Result.GrossedUpBase, 1e-6)
	assert.InDelta(t, 1650.75, response.Result.Total, 1e-6)

	w = do(srv, http.MethodPost, "/api/v1/nfe/difal?methodology=base_unica", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, tax.MethodologySingleBase, response.Result.Methodology)
	assert.InDelta(t, 1065, response.Result.Total, 1e-6)
}

func TestDocumentDIFALEndpoint_Errors(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/nfe/difal?methodology=triple", readFixture(t, "nfe_proc_sp_rj.xml"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/nfe/difal", readFixture(t, "nfe_minimal.xml"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "recipient")
}

func TestDIFALEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		methodology tax.Methodology
		total       float64
	}{
		{
			name:        "rates from the table",
			body:        `{"operation_value": 10000, "origin_state": "SP", "destination_state": "RJ"}`,
			methodology: tax.MethodologyDualBase,
			total:       1550,
		},
		{
			name:        "explicit rates",
			body:        `{"operation_value": 10000, "origin_state": "SP", "destination_state": "RJ", "interstate_rate": 12, "destination_internal_rate": 20, "fcp_rate": 2, "methodology": "single_base"}`,
			methodology: tax.MethodologySingleBase,
			total:       1000,
		},
		{
			name:        "ES resolves to single base",
			body:        `{"operation_value": 10000, "origin_state": "SP", "destination_state": "ES", "interstate_rate": 12, "destination_internal_rate": 20, "fcp_rate": 2}`,
			methodology: tax.MethodologySingleBase,
			total:       1000,
		},
		{
			name:        "imported goods",
			body:        `{"operation_value": 10000, "origin_state": "SP", "destination_state": "RJ", "imported": true, "methodology": "single"}`,
			methodology: tax.MethodologySingleBase,
			total:       1800,
		},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/difal", []byte(tt.body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var result tax.DifalResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.methodology, result.Methodology)
			assert.InDelta(t, tt.total, result.Total, 1e-6)
		})
	}
}

func TestDIFALEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"operation_value":`, http.StatusBadRequest, ""},
		{"negative value", `{"operation_value": -1, "origin_state": "SP", "destination_state": "RJ"}`, http.StatusBadRequest, ""},
		{"bad methodology", `{"operation_value": 1, "methodology": "triple"}`, http.StatusBadRequest, ""},
		{"unknown state", `{"operation_value": 1, "origin_state": "SP", "destination_state": "XX"}`, http.StatusUnprocessableEntity, ""},
		{"same state", `{"operation_value": 1, "origin_state": "SP", "destination_state": "SP"}`, http.StatusUnprocessableEntity, ""},
		{
			"rate sum",
			`{"operation_value": 1, "interstate_rate": 12, "destination_internal_rate": 100, "fcp_rate": 0, "methodology": "dual"}`,
			http.StatusUnprocessableEntity,
			model.ErrCodeInvalidRateSum,
		},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/difal", []byte(tt.body))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestMVAEndpoint(t *testing.T) {
	srv := newTestServer()

	w := do(srv, http.MethodPost, "/api/v1/mva", []byte(`{"original_mva": 40, "interstate_rate": 12, "destination_internal_rate": 18}`))
	require.Equal(t, http.StatusOK, w.Code)

	var result tax.MvaResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.InDelta(t, 50.24, result.Adjusted, 0.01)
	assert.Equal(t, 40.0, result.Original)

	w = do(srv, http.MethodPost, "/api/v1/mva", []byte(`{"original_mva": 40, "interstate_rate": 12, "destination_internal_rate": 100}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeDivisionByZero, decodeError(t, w).Code)

	w = do(srv, http.MethodPost, "/api/v1/mva", []byte(`{"original_mva": -5}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfoEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		body      []byte
		format    string
		root      string
		accessKey string
	}{
		{"processed NF-e", readFixture(t, "nfe_proc_sp_rj.xml"), "nfe", "nfeProc", "35240112345678000195550010000012341123456780"},
		{"bare NF-e", readFixture(t, "nfe_minimal.xml"), "nfe", "NFe", "35240112345678000195550010000012341123456780"},
		{"other xml", []byte(`<?xml version="1.0"?><Invoice/>`), "xml", "Invoice", ""},
		{"pdf", []byte("%PDF-1.7\n"), "pdf", "", ""},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, http.MethodPost, "/api/v1/info", tt.body)
			require.Equal(t, http.StatusOK, w.Code)

			var response server.InfoResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.format, response.Format)
			assert.Equal(t, tt.root, response.Root)
			assert.Equal(t, tt.accessKey, response.AccessKey)
			assert.Equal(t, len(tt.body), response.Size)
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer()
	body := readFixture(t, "nfe_proc_sp_rj.xml")

	w := do(srv, http.MethodPost, "/api/v1/nfe/export", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "35240112345678000195550010000012341123456780.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = do(srv, http.MethodPost, "/api/v1/nfe/export?format=csv", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "access_key,"))

	w = do(srv, http.MethodPost, "/api/v1/nfe/export?format=ods", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatesEndpoint(t *testing.T) {
	table, err := tax.ParseRateTable([]byte("states:\n  SP: { region: SE, internal: 18, fcp: 2 }\n"))
	require.NoError(t, err)

	srv := server.NewServer(&server.Config{Logger: zap.NewNop(), Rates: table})

	w := do(srv, http.MethodGet, "/api/v1/rates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response tax.RateTable
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.States, 1)
	assert.Equal(t, 18.0, response.States["SP"].Internal)
	assert.Equal(t, 12.0, response.Interstate.Standard)
}

// Benchmark tests

func BenchmarkParse(b *testing.B) {
	srv := newTestServer()
	body := readFixture(b, "nfe_proc_sp_rj.xml")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		do(srv, http.MethodPost, "/api/v1/nfe/parse", body)
	}
}

func BenchmarkHealth(b *testing.B) {
	srv := newTestServer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		do(srv, http.MethodGet, "/health", nil)
	}
}
