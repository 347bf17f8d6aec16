package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/tabular"
	"github.com/usestring/superkart-inference/internal/transform"
	"github.com/usestring/superkart-inference/pkg/types"
)

const header = "Product_Type,Store_Type,Store_Location_City_Type,Store_Size,Product_Sugar_Content,Product_Weight,Product_MRP,Product_Allocated_Area,Store_Establishment_Year\n"

func example() schema.RawRecord {
	return schema.RawRecord{
		"Product_Type":             "Dairy",
		"Store_Type":               "Supermarket Type1",
		"Store_Location_City_Type": "Tier 1",
		"Store_Size":               "Medium",
		"Product_Sugar_Content":    "Low Sugar",
		"Product_Weight":           15.0,
		"Product_MRP":              200.0,
		"Product_Allocated_Area":   0.05,
		"Store_Establishment_Year": 2010,
	}
}

func newService(t *testing.T) *Service {
	t.Helper()
	gw, err := gateway.New(context.Background(), schema.Default(), model.FileLoader{Path: "../model/testdata/linear.yaml"})
	require.NoError(t, err)
	return New(gw, Config{MaxBatchRows: 100})
}

func TestPredictSingle(t *testing.T) {
	svc := newService(t)

	res, err := svc.PredictSingle(context.Background(), example())
	require.NoError(t, err)
	assert.InDelta(t, 523.5, res.Prediction, 1e-9)
	assert.False(t, res.Timestamp.IsZero())
}

func TestPredictSingle_Violations(t *testing.T) {
	svc := newService(t)

	raw := example()
	raw["Store_Establishment_Year"] = 1800
	delete(raw, "Store_Size")

	_, err := svc.PredictSingle(context.Background(), raw)
	var vs types.Violations
	require.ErrorAs(t, err, &vs)
	assert.Equal(t, []string{"Store_Size", "Store_Establishment_Year"}, vs.Fields())
	assert.Equal(t, types.CodeValidationFailed, Classify(err).Code)
}

func TestTransformSingle(t *testing.T) {
	svc := newService(t)

	res, err := svc.TransformSingle(context.Background(), example())
	require.NoError(t, err)
	assert.Len(t, res.Features, 9)
	assert.Equal(t, "Dairy", res.InputData["Product_Type"])
	assert.Equal(t, int64(2010), res.InputData["Store_Establishment_Year"])
	assert.Equal(t, "test-1", res.ModelVersion)
}

func TestTransformSingle_VersionOfPredictingModel(t *testing.T) {
	var (
		gw      *gateway.Gateway
		version atomic.Int64
	)
	loader := model.LoaderFunc(func(context.Context) (*model.Instance, error) {
		v := fmt.Sprintf("v%d", version.Add(1))
		return &model.Instance{
			Predictor: model.Func(func(ctx context.Context, _ types.FeatureVector) (float64, error) {
				// A reload lands while this model is still predicting.
				if _, err := gw.Reload(ctx); err != nil {
					return 0, err
				}
				return 1, nil
			}),
			Info: model.Info{Type: "stub", Version: v},
		}, nil
	})
	var err error
	gw, err = gateway.New(context.Background(), schema.Default(), loader)
	require.NoError(t, err)
	svc := New(gw, Config{})

	res, err := svc.TransformSingle(context.Background(), example())
	require.NoError(t, err)
	assert.Equal(t, "v1", res.ModelVersion)
	assert.Equal(t, "v2", svc.ModelInfo().ModelVersion)
}

func TestPredictBatch_CSV(t *testing.T) {
	svc := newService(t)

	csv := header +
		"Dairy,Supermarket Type1,Tier 1,Medium,Low Sugar,15,200,0.05,2010\n" +
		"Dairy,Supermarket Type1,Tier 1,Medium,Low Sugar,15,200,0.05,1800\n" +
		"Dairy,Supermarket Type1,Tier 1,Small,Low Sugar,15,100,0.05,2010\n"
	tbl, err := tabular.ParseCSV(strings.NewReader(csv), svc.MaxBatchRows())
	require.NoError(t, err)

	report, err := svc.PredictBatch(context.Background(), tbl, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, []int{2}, report.FailedRows)
	assert.InDelta(t, 523.5, *report.Results[0].Prediction, 1e-9)
	assert.InDelta(t, 320.5, *report.Results[2].Prediction, 1e-9)
	assert.Len(t, report.Results[0].Features, 9)
}

func TestPredictBatch_MissingColumns(t *testing.T) {
	svc := newService(t)

	tbl, err := tabular.ParseCSV(strings.NewReader("Product_Type,Store_Type\nDairy,Grocery Store\n"), 0)
	require.NoError(t, err)

	_, err = svc.PredictBatch(context.Background(), tbl, false)
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Columns, 7)
	assert.Equal(t, types.CodeInvalidInput, Classify(err).Code)
}

func TestValidateBatch(t *testing.T) {
	svc := newService(t)

	tbl, err := tabular.ParseJSON([]byte(`[{"Product_Type": "Dairy"}]`), 0)
	require.NoError(t, err)

	report := svc.ValidateBatch(tbl)
	assert.Equal(t, schema.StatusFailed, report.Summary.Status)
	assert.Len(t, report.Summary.MissingColumns, 8)
	assert.Equal(t, 1, report.Summary.InvalidRows)
}

func TestModelInfoAndHealth(t *testing.T) {
	svc := newService(t)

	info := svc.ModelInfo()
	assert.True(t, info.ModelLoaded)
	assert.Equal(t, "LinearRegression", info.ModelType)
	assert.Equal(t, "test-1", info.ModelVersion)
	assert.Len(t, info.ExpectedFeatures, 9)

	h := svc.Health()
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, "test-1", h.ModelVersion)

	info, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-1", info.ModelVersion)
}

func TestService_WithoutModel(t *testing.T) {
	svc := New(nil, Config{})

	assert.Equal(t, StatusUnhealthy, svc.Health().Status)
	assert.False(t, svc.ModelInfo().ModelLoaded)
	assert.Len(t, svc.Schema().RequiredFields, 9)

	_, err := svc.PredictSingle(context.Background(), example())
	assert.Equal(t, types.CodeModelUnavailable, Classify(err).Code)

	_, err = svc.PredictBatch(context.Background(), &tabular.Table{}, false)
	assert.Equal(t, types.CodeModelUnavailable, Classify(err).Code)
}

func TestProject(t *testing.T) {
	svc := newService(t)

	res, err := svc.Project(context.Background(), map[string]any{"a": []int{1, 2}}, ".a[]")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, res.Values)

	_, err = svc.Project(context.Background(), nil, ".[")
	assert.Equal(t, types.CodeInvalidInput, Classify(err).Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("wrapped: %w", tabular.ErrTooManyRows), types.CodePayloadTooLarge},
		{tabular.ErrEmpty, types.CodeInvalidInput},
		{fmt.Errorf("%w: bad", tabular.ErrMalformed), types.CodeInvalidInput},
		{&transform.SchemaMismatchError{Field: "f", Label: "l"}, types.CodeSchemaMismatch},
		{&model.InferenceError{Cause: errors.New("nan")}, types.CodeModelInference},
		{fmt.Errorf("%w: gone", model.ErrUnavailable), types.CodeModelUnavailable},
		{errors.New("other"), types.CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Classify(tt.err).Code, tt.err.Error())
	}
	assert.Nil(t, Classify(nil))
}
