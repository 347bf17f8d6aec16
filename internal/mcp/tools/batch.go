package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/tabular"
	"github.com/usestring/superkart-inference/pkg/types"
)

// PredictBatchInput is the input for superkart_predict_batch.
type PredictBatchInput struct {
	Rows            []map[string]any `json:"rows" jsonschema:"Records to forecast, each keyed by field name like superkart_predict's record"`
	IncludeFeatures bool             `json:"include_features,omitempty" jsonschema:"Return each row's encoded feature vector (default: false)"`
	JQ              string           `json:"jq,omitempty" jsonschema:"Optional jq expression applied to the full batch report, e.g. '.results[] | select(.status != \"ok\") | .row'. When set, values/errors replace results."`
}

// PredictBatchOutput is the output for superkart_predict_batch.
type PredictBatchOutput struct {
	TotalRecords int               `json:"total_records"`
	Succeeded    int               `json:"succeeded"`
	Failed       int               `json:"failed"`
	FailedRows   []int             `json:"failed_rows,omitzero"`
	Statistics   *types.Statistics `json:"statistics,omitempty"`
	Results      []BatchRow        `json:"results,omitzero"`
	Values       []any             `json:"values,omitzero"`
	Errors       []string          `json:"errors,omitzero"`
}

// BatchRow is the outcome of one input row.
type BatchRow struct {
	Row        int             `json:"row"`
	Status     string          `json:"status"`
	Prediction *float64        `json:"prediction,omitempty"`
	Violations []string        `json:"violations,omitzero"`
	Error      string          `json:"error,omitempty"`
	Features   []types.Feature `json:"features,omitzero"`
}

// ToolPredictBatch forecasts many records. Invalid rows and rows the model
// fails on are reported individually and never fail the call.
func ToolPredictBatch(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input PredictBatchInput) (*sdkmcp.CallToolResult, PredictBatchOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input PredictBatchInput) (*sdkmcp.CallToolResult, PredictBatchOutput, error) {
		tbl, err := rowsTable(input.Rows, d.maxRows())
		if err != nil {
			return nil, PredictBatchOutput{}, WrapServiceError(err)
		}

		report, err := d.Service.PredictBatch(ctx, tbl, input.IncludeFeatures)
		if err != nil {
			return nil, PredictBatchOutput{}, WrapServiceError(err)
		}

		output := PredictBatchOutput{
			TotalRecords: report.TotalRecords,
			Succeeded:    report.Succeeded,
			Failed:       report.Failed,
			FailedRows:   report.FailedRows,
			Statistics:   report.Statistics,
		}

		if input.JQ != "" {
			res, err := d.Service.Project(ctx, report, input.JQ)
			if err != nil {
				return nil, PredictBatchOutput{}, WrapServiceError(err)
			}
			output.Values = res.Values
			output.Errors = res.Errors
			return nil, output, nil
		}

		output.Results = make([]BatchRow, len(report.Results))
		for i, r := range report.Results {
			row := BatchRow{
				Row:        r.Row,
				Status:     r.Status,
				Prediction: r.Prediction,
				Features:   r.Features,
				Violations: violationStrings(r.Violations),
			}
			if r.Error != nil {
				row.Error = r.Error.Code + ": " + r.Error.Message
			}
			output.Results[i] = row
		}
		return nil, output, nil
	}
}

// rowsTable wraps tool rows in a table, enforcing the row limit.
func rowsTable(rows []map[string]any, maxRows int) (*tabular.Table, error) {
	if len(rows) == 0 {
		return nil, tabular.ErrEmpty
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("%w: got %d, limit is %d", tabular.ErrTooManyRows, len(rows), maxRows)
	}
	tbl := &tabular.Table{Rows: make([]schema.RawRecord, len(rows))}
	for i, row := range rows {
		tbl.Rows[i] = schema.RawRecord(row)
	}
	return tbl, nil
}

func violationStrings(vs types.Violations) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
