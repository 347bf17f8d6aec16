package tools

import (
	"context"

	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SchemaInput is the input for superkart_schema.
type SchemaInput struct{}

// SchemaOutput is the output for superkart_schema.
type SchemaOutput struct {
	RequiredFields []string      `json:"required_fields,omitzero"`
	Fields         []FieldOutput `json:"fields,omitzero"`
}

// FieldOutput describes one input field.
type FieldOutput struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	ValidValues []string `json:"valid_values,omitzero"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ToolSchema lists the input fields with their allowed values and ranges.
func ToolSchema(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SchemaInput) (*sdkmcp.CallToolResult, SchemaOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SchemaInput) (*sdkmcp.CallToolResult, SchemaOutput, error) {
		reg := d.Service.Registry()
		output := SchemaOutput{RequiredFields: reg.Names()}
		for _, f := range reg.Fields() {
			fo := FieldOutput{
				Name:        f.Name,
				Type:        string(f.Kind),
				ValidValues: f.Values,
				Unit:        f.Unit,
				Description: f.Description,
			}
			if f.Numeric() {
				lo, hi := f.Min, f.Max
				fo.Min, fo.Max = &lo, &hi
			}
			output.Fields = append(output.Fields, fo)
		}
		return nil, output, nil
	}
}

// ModelInfoInput is the input for superkart_model_info.
type ModelInfoInput struct{}

// ModelInfoOutput is the output for superkart_model_info.
type ModelInfoOutput struct {
	ModelType        string   `json:"model_type"`
	ModelLoaded      bool     `json:"model_loaded"`
	ModelVersion     string   `json:"model_version,omitempty"`
	Source           string   `json:"source,omitempty"`
	LoadedAt         string   `json:"loaded_at,omitempty"`
	ExpectedFeatures []string `json:"expected_features,omitzero"`
}

// ToolModelInfo describes the model currently serving predictions.
func ToolModelInfo(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModelInfoInput) (*sdkmcp.CallToolResult, ModelInfoOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModelInfoInput) (*sdkmcp.CallToolResult, ModelInfoOutput, error) {
		info := d.Service.ModelInfo()
		output := ModelInfoOutput{
			ModelType:        info.ModelType,
			ModelLoaded:      info.ModelLoaded,
			ModelVersion:     info.ModelVersion,
			Source:           info.Source,
			ExpectedFeatures: info.ExpectedFeatures,
		}
		if !info.LoadedAt.IsZero() {
			output.LoadedAt = info.LoadedAt.Format(time.RFC3339)
		}
		return nil, output, nil
	}
}

// ValidateInput is the input for superkart_validate.
type ValidateInput struct {
	Rows []map[string]any `json:"rows" jsonschema:"Records to check, each keyed by field name"`
}

// ValidateOutput is the output for superkart_validate.
type ValidateOutput struct {
	Status                   string          `json:"status"`
	TotalRows                int             `json:"total_rows"`
	ValidRows                int             `json:"valid_rows"`
	InvalidRows              int             `json:"invalid_rows"`
	NullCounts               map[string]int  `json:"null_counts,omitempty"`
	InvalidCategoricalCounts map[string]int  `json:"invalid_categorical_counts,omitempty"`
	InvalidNumericCounts     map[string]int  `json:"invalid_numeric_counts,omitempty"`
	OutOfRangeCounts         map[string]int  `json:"out_of_range_counts,omitempty"`
	Rows                     []RowViolations `json:"rows,omitzero"`
}

// RowViolations lists what is wrong with one row (1-based).
type RowViolations struct {
	Row        int      `json:"row"`
	Violations []string `json:"violations"`
}

// ToolValidate checks records against the input schema without predicting.
func ToolValidate(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateInput) (*sdkmcp.CallToolResult, ValidateOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateInput) (*sdkmcp.CallToolResult, ValidateOutput, error) {
		tbl, err := rowsTable(input.Rows, d.maxRows())
		if err != nil {
			return nil, ValidateOutput{}, WrapServiceError(err)
		}

		report := d.Service.ValidateBatch(tbl)
		sum := report.Summary
		output := ValidateOutput{
			Status:                   sum.Status,
			TotalRows:                sum.TotalRows,
			ValidRows:                sum.ValidRows,
			InvalidRows:              sum.InvalidRows,
			NullCounts:               nonEmpty(sum.NullCounts),
			InvalidCategoricalCounts: nonEmpty(sum.InvalidCategoricalCounts),
			InvalidNumericCounts:     nonEmpty(sum.InvalidNumericCounts),
			OutOfRangeCounts:         nonEmpty(sum.OutOfRangeCounts),
		}
		for _, r := range report.Rows {
			output.Rows = append(output.Rows, RowViolations{Row: r.Row, Violations: violationStrings(r.Violations)})
		}
		return nil, output, nil
	}
}

func nonEmpty(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	return m
}
