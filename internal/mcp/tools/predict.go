package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/pkg/types"
)

// PredictInput is the input for superkart_predict.
type PredictInput struct {
	Record          map[string]any `json:"record" jsonschema:"Product and store attributes keyed by field name. See superkart_schema for the nine required fields and their allowed values."`
	IncludeFeatures bool           `json:"include_features,omitempty" jsonschema:"Also return the encoded feature vector and the normalised input (default: false)"`
}

// PredictOutput is the output for superkart_predict.
type PredictOutput struct {
	Prediction   float64         `json:"prediction"`
	ModelVersion string          `json:"model_version,omitempty"`
	Features     []types.Feature `json:"features,omitzero"`
	InputData    map[string]any  `json:"input_data,omitempty"`
}

// ToolPredict forecasts the sales revenue of one product/store record.
// A record failing validation is reported as a tool error listing every
// offending field.
func ToolPredict(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input PredictInput) (*sdkmcp.CallToolResult, PredictOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input PredictInput) (*sdkmcp.CallToolResult, PredictOutput, error) {
		if len(input.Record) == 0 {
			return nil, PredictOutput{}, ErrInvalidInput("record is required")
		}

		res, err := d.Service.TransformSingle(ctx, schema.RawRecord(input.Record))
		if err != nil {
			return nil, PredictOutput{}, WrapServiceError(err)
		}

		output := PredictOutput{
			Prediction:   res.Prediction,
			ModelVersion: res.ModelVersion,
		}
		if input.IncludeFeatures {
			output.Features = res.Features
			output.InputData = res.InputData
		}
		return nil, output, nil
	}
}
