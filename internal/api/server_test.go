package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/service"
	"github.com/usestring/superkart-inference/pkg/types"
)

const (
	header  = "Product_Type,Store_Type,Store_Location_City_Type,Store_Size,Product_Sugar_Content,Product_Weight,Product_MRP,Product_Allocated_Area,Store_Establishment_Year\n"
	goodRow = "Dairy,Supermarket Type1,Tier 1,Medium,Low Sugar,15.0,200.0,0.05,2010\n"
	badRow  = "Dairy,Supermarket Type1,Tier 1,Huge,Low Sugar,15.0,200.0,0.05,2010\n"

	exampleJSON = `{
		"Product_Type": "Dairy",
		"Store_Type": "Supermarket Type1",
		"Store_Location_City_Type": "Tier 1",
		"Store_Size": "Medium",
		"Product_Sugar_Content": "Low Sugar",
		"Product_Weight": 15.0,
		"Product_MRP": 200.0,
		"Product_Allocated_Area": 0.05,
		"Store_Establishment_Year": 2010
	}`
)

func newServer(t *testing.T, cfg Config, opts ...Option) *Server {
	t.Helper()
	gw, err := gateway.New(context.Background(), schema.Default(), model.FileLoader{Path: "../model/testdata/linear.yaml"})
	require.NoError(t, err)
	svc := service.New(gw, service.Config{MaxBatchRows: 3})
	return New(svc, cfg, opts...)
}

func do(t *testing.T, s *Server, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorBody {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestPredict(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/predict", "application/json", []byte(exampleJSON))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 523.5, resp.Prediction, 1e-9)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestPredict_Violations(t *testing.T) {
	s := newServer(t, Config{})

	body := strings.Replace(exampleJSON, `"Medium"`, `"Huge"`, 1)
	body = strings.Replace(body, "2010", "1800", 1)
	rec := do(t, s, http.MethodPost, "/predict", "application/json", []byte(body))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp types.ViolationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Store_Size", "Store_Establishment_Year"}, resp.Violations.Fields())
}

func TestPredict_MalformedJSON(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/predict", "application/json", []byte(`{"Product_Type":`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, types.CodeInvalidInput, decodeError(t, rec).Code)
}

func TestTransformSingle(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/single", "application/json", []byte(exampleJSON))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Features, 9)
	assert.Equal(t, "Dairy", resp.InputData["Product_Type"])
}

func TestPredictBatch(t *testing.T) {
	s := newServer(t, Config{})

	bad := strings.Replace(exampleJSON, `"Medium"`, `"Huge"`, 1)
	rec := do(t, s, http.MethodPost, "/predict/batch", "application/json", []byte(`{"data":[`+exampleJSON+`,`+bad+`]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report types.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, []int{2}, report.FailedRows)
	assert.Empty(t, report.Results[0].Features)
}

func TestPredictBatch_TooManyRows(t *testing.T) {
	s := newServer(t, Config{})

	rows := strings.Repeat(exampleJSON+",", 4)
	rec := do(t, s, http.MethodPost, "/predict/batch", "application/json", []byte("["+strings.TrimSuffix(rows, ",")+"]"))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, types.CodePayloadTooLarge, decodeError(t, rec).Code)
}

func TestPredictBatch_Empty(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/predict/batch", "application/json", []byte(`{"data":[]}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformBatch_CSVBody(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/batch", "text/csv", []byte(header+goodRow+badRow))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report types.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []int{2}, report.FailedRows)
	assert.Len(t, report.Results[0].Features, 9)
	assert.Equal(t, types.RowInvalid, report.Results[1].Status)
}

func TestTransformBatch_Multipart(t *testing.T) {
	s := newServer(t, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(header + goodRow))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/transform/batch", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report types.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Succeeded)
}

func TestTransformBatch_MultipartMissingFile(t *testing.T) {
	s := newServer(t, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/transform/batch", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransformBatch_MissingColumns(t *testing.T) {
	s := newServer(t, Config{})

	csv := "Product_Type,Store_Type\nDairy,Supermarket Type1\n"
	rec := do(t, s, http.MethodPost, "/transform/batch", "text/csv", []byte(csv))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, types.CodeInvalidInput, body.Code)
	assert.Contains(t, body.Message, "Store_Establishment_Year")
}

func TestTransformBatch_AnnotatedCSV(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/batch?format=csv", "text/csv", []byte(header+goodRow+badRow))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "Predicted_Revenue,Errors"))
	assert.Contains(t, lines[1], "523.50")
	assert.Contains(t, lines[2], "Store_Size")
}

func TestTransformBatch_Sniffed(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/batch", "", []byte("["+exampleJSON+"]"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestTransformBatch_JQ(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/batch?jq=.results[].status", "text/csv", []byte(header+goodRow+badRow))
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Values []any `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []any{types.RowOK, types.RowInvalid}, res.Values)
}

func TestTransformBatch_BadJQ(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/transform/batch?jq=.results[", "text/csv", []byte(header+goodRow))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateBatch(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/validate/batch", "text/csv", []byte(header+goodRow+badRow))
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.ValidationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Summary.TotalRows)
	assert.Equal(t, 1, report.Summary.InvalidRows)
	assert.Equal(t, schema.StatusFailed, report.Summary.Status)
}

func TestBodyLimit(t *testing.T) {
	s := newServer(t, Config{MaxBodyBytes: 64})

	rec := do(t, s, http.MethodPost, "/predict", "application/json", []byte(exampleJSON))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, types.CodePayloadTooLarge, decodeError(t, rec).Code)
}

func TestHealthAndInfo(t *testing.T) {
	s := newServer(t, Config{Version: "dev"})

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, service.StatusHealthy, health.Status)
	assert.Equal(t, "test-1", health.ModelVersion)

	rec = do(t, s, http.MethodGet, "/model/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info types.ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.ModelLoaded)
	assert.Len(t, info.ExpectedFeatures, 9)

	rec = do(t, s, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"dev"`)
}

func TestHealth_NoModel(t *testing.T) {
	s := New(service.New(nil, service.Config{}), Config{})

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodPost, "/predict", "application/json", []byte(exampleJSON))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, types.CodeModelUnavailable, decodeError(t, rec).Code)
}

func TestSchema(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/schema?jq=.required_fields|length", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"values":[9]}`, rec.Body.String())
}

func TestReload(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/model/reload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"model_version":"test-1"`)
}

func TestNotFound(t *testing.T) {
	s := newServer(t, Config{})

	rec := do(t, s, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, types.CodeNotFound, decodeError(t, rec).Code)
}

func TestWithMCPHandler(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	s := newServer(t, Config{}, WithMCPHandler(h))

	rec := do(t, s, http.MethodPost, "/mcp", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
