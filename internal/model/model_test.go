package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/superkart-inference/pkg/types"
)

const testArtifact = "testdata/linear.yaml"

// exampleVector is Dairy / Supermarket Type1 / Tier 1 / Medium / Low Sugar,
// 15 kg, MRP 200, area 0.05, opened 2010.
func exampleVector() types.FeatureVector {
	return types.FeatureVector{
		{Name: "Product_Type", Value: 3, Label: "Dairy"},
		{Name: "Store_Type", Value: 0, Label: "Supermarket Type1"},
		{Name: "Store_Location_City_Type", Value: 0, Label: "Tier 1"},
		{Name: "Store_Size", Value: 1, Label: "Medium"},
		{Name: "Product_Sugar_Content", Value: 1, Label: "Low Sugar"},
		{Name: "Product_Weight", Value: 15},
		{Name: "Product_MRP", Value: 200},
		{Name: "Product_Allocated_Area", Value: 0.05},
		{Name: "Store_Establishment_Year", Value: 2010},
	}
}

func loadTestModel(t *testing.T) *Instance {
	t.Helper()
	inst, err := FileLoader{Path: testArtifact}.Load(context.Background())
	require.NoError(t, err)
	return inst
}

func TestFileLoader_Load(t *testing.T) {
	inst := loadTestModel(t)

	assert.Equal(t, "LinearRegression", inst.Info.Type)
	assert.Equal(t, "test-1", inst.Info.Version)
	assert.True(t, filepath.IsAbs(inst.Info.Source))
	assert.False(t, inst.Info.LoadedAt.IsZero())

	lin, ok := inst.Predictor.(*Linear)
	require.True(t, ok)
	assert.Len(t, lin.Features(), 9)
	assert.Equal(t, []string{"Small", "Medium", "High"}, lin.Encoding()["Store_Size"])
}

func TestFileLoader_ShippedArtifact(t *testing.T) {
	inst, err := FileLoader{Path: "../../models/superkart_model.yaml"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", inst.Info.Version)

	y, err := inst.Predictor.PredictOne(context.Background(), exampleVector())
	require.NoError(t, err)
	assert.Greater(t, y, 0.0)
}

func TestFileLoader_MissingFile(t *testing.T) {
	_, err := FileLoader{Path: filepath.Join(t.TempDir(), "nope.yaml")}.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseArtifact_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "wrong kind",
			doc:  `{"kind": "forest", "version": "1", "features": ["a"], "intercept": 0, "numeric": {"a": 1}}`,
			want: "/kind",
		},
		{
			name: "missing version",
			doc:  `{"kind": "linear", "features": ["a"], "intercept": 0, "numeric": {"a": 1}}`,
			want: "version",
		},
		{
			name: "unknown key",
			doc:  "kind: linear\nversion: '1'\nfeatures: [a]\nintercept: 0\nnumeric: {a: 1}\nbias: 3\n",
			want: "bias",
		},
		{
			name: "weights mismatch",
			doc:  "kind: linear\nversion: '1'\nfeatures: [a]\nintercept: 0\ncategorical:\n  a: {levels: [x, y], weights: [1]}\n",
			want: "2 levels but 1 weights",
		},
		{
			name: "feature without weights",
			doc:  "kind: linear\nversion: '1'\nfeatures: [a, b]\nintercept: 0\nnumeric: {a: 1}\n",
			want: "feature b has no weights",
		},
		{
			name: "not yaml",
			doc:  "kind: [linear",
			want: "invalid model artifact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact("model.yaml", []byte(tt.doc))
			var aerr *ArtifactError
			require.ErrorAs(t, err, &aerr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLinear_PredictOne(t *testing.T) {
	inst := loadTestModel(t)

	y, err := inst.Predictor.PredictOne(context.Background(), exampleVector())
	require.NoError(t, err)
	// 100 + Dairy 5 + Medium 3 + 15*1 + 200*2 + 0.05*10
	assert.InDelta(t, 523.5, y, 1e-9)
}

func TestLinear_PredictManyKeepsOrder(t *testing.T) {
	inst := loadTestModel(t)

	a := exampleVector()
	b := exampleVector()
	b[6].Value = 100 // MRP
	c := exampleVector()
	c[3] = types.Feature{Name: "Store_Size", Value: 0, Label: "Small"}

	ys, err := inst.Predictor.PredictMany(context.Background(), []types.FeatureVector{a, b, c})
	require.NoError(t, err)
	require.Len(t, ys, 3)
	assert.InDelta(t, 523.5, ys[0], 1e-9)
	assert.InDelta(t, 323.5, ys[1], 1e-9)
	assert.InDelta(t, 520.5, ys[2], 1e-9)

	empty, err := inst.Predictor.PredictMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLinear_InferenceErrors(t *testing.T) {
	inst := loadTestModel(t)
	ctx := context.Background()

	short := exampleVector()[:8]
	_, err := inst.Predictor.PredictOne(ctx, short)
	var ierr *InferenceError
	require.ErrorAs(t, err, &ierr)

	swapped := exampleVector()
	swapped[5], swapped[6] = swapped[6], swapped[5]
	_, err = inst.Predictor.PredictOne(ctx, swapped)
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, err.Error(), "model expects Product_Weight")

	badCode := exampleVector()
	badCode[1].Value = 9
	_, err = inst.Predictor.PredictOne(ctx, badCode)
	require.ErrorAs(t, err, &ierr)
}

func TestFunc_PredictMany(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(_ context.Context, fv types.FeatureVector) (float64, error) {
		if fv[0].Value < 0 {
			return 0, boom
		}
		return fv[0].Value * 2, nil
	})

	ys, err := f.PredictMany(context.Background(), []types.FeatureVector{{{Value: 1}}, {{Value: 2}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, ys)

	_, err = f.PredictMany(context.Background(), []types.FeatureVector{{{Value: 1}}, {{Value: -1}}})
	assert.ErrorIs(t, err, boom)
}

func TestRemote_PredictMany(t *testing.T) {
	var gotRows []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model/info":
			_ = json.NewEncoder(w).Encode(types.ModelInfo{
				ModelType:        "LinearRegression",
				ModelLoaded:      true,
				ModelVersion:     "v9",
				ExpectedFeatures: []string{"Product_Type"},
			})
		case "/predict/batch":
			var body struct {
				Data []map[string]any `json:"data"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			gotRows = body.Data
			report := types.BatchReport{TotalRecords: len(body.Data)}
			for i := range body.Data {
				y := float64(i + 1)
				report.Results = append(report.Results, types.RowResult{Row: i + 1, Status: types.RowOK, Prediction: &y})
			}
			_ = json.NewEncoder(w).Encode(report)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	inst, err := RemoteLoader{URL: srv.URL + "/", Options: []RemoteOption{WithTimeout(time.Second)}}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote:LinearRegression", inst.Info.Type)
	assert.Equal(t, "v9", inst.Info.Version)
	assert.Equal(t, []string{"Product_Type"}, inst.Predictor.(FeatureLister).Features())
	assert.True(t, inst.Predictor.(Volatile).Volatile())

	ys, err := inst.Predictor.PredictMany(context.Background(), []types.FeatureVector{exampleVector(), exampleVector()})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, ys)

	require.Len(t, gotRows, 2)
	assert.Equal(t, "Dairy", gotRows[0]["Product_Type"])
	assert.Equal(t, 200.0, gotRows[0]["Product_MRP"])
}

func TestRemote_FailedRowIsInferenceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.BatchReport{Results: []types.RowResult{{
			Row:    1,
			Status: types.RowError,
			Error:  &types.ErrorBody{Code: "MODEL_INFERENCE", Message: "nan"},
		}}})
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL).PredictOne(context.Background(), exampleVector())
	var ierr *InferenceError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, err.Error(), "nan")
}

func TestRemoteLoader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: types.ErrorBody{Code: "MODEL_UNAVAILABLE", Message: "no model"}})
	}))
	defer srv.Close()

	_, err := RemoteLoader{URL: srv.URL}.Load(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "MODEL_UNAVAILABLE", apiErr.Code)
}

func TestWatch_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	require.NoError(t, Watch(ctx, path, 20*time.Millisecond, func() { changed <- struct{}{} }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("onChange was not called")
	}
}
