package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleForecastSales implements the forecasting workflow.
func HandleForecastSales(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var store, products string
		if args := req.Params.Arguments; args != nil {
			store = args["store"]
			products = args["products"]
		}

		var sb strings.Builder

		sb.WriteString("# Forecast Product Sales\n\n")
		sb.WriteString("You are helping a retail analyst estimate the total sales revenue of products at SuperKart stores.\n\n")

		sb.WriteString("## Workflow\n\n")
		sb.WriteString("1. **Check the schema**: `superkart_schema()` lists the nine required fields, their allowed values and ranges\n")
		sb.WriteString("   - Categorical values are case-sensitive and must match exactly\n")
		if cfg.SugarContentAliases {
			sb.WriteString("   - `Product_Sugar_Content` also accepts the aliases `reg` and `low sugar`\n")
		}
		sb.WriteString("2. **Build records**: one object per product, keyed by field name\n")
		sb.WriteString("   - Ask the user for anything you cannot infer; never guess numeric values\n")
		sb.WriteString("3. **Validate** when unsure: `superkart_validate(rows: [...])` reports every problem without predicting\n")
		sb.WriteString("4. **Predict**:\n")
		sb.WriteString("   - One record: `superkart_predict(record: {...})`\n")
		sb.WriteString("   - Several: `superkart_predict_batch(rows: [...])`")
		if cfg.MaxBatchRows > 0 {
			fmt.Fprintf(&sb, " (at most %d rows per call)", cfg.MaxBatchRows)
		}
		sb.WriteString("\n")
		sb.WriteString("5. **Report**: give each prediction with the model version; summarise totals with `jq: \".statistics\"`\n\n")

		if store != "" || products != "" {
			sb.WriteString("## Request\n\n")
			if store != "" {
				fmt.Fprintf(&sb, "- Store: %s\n", store)
			}
			if products != "" {
				fmt.Fprintf(&sb, "- Products: %s\n", products)
			}
			sb.WriteString("\n")
		}

		sb.WriteString("## Notes\n\n")
		sb.WriteString("- Predictions are revenue in the same currency as `Product_MRP`\n")
		sb.WriteString("- A failed row in a batch never fails the other rows; check `failed_rows`\n")

		return &sdkmcp.GetPromptResult{
			Description: "Workflow for forecasting product sales",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}

// HandleTriageBatch implements the batch triage workflow.
func HandleTriageBatch(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var sb strings.Builder

		sb.WriteString("# Triage Rejected Batch Rows\n\n")
		sb.WriteString("1. Run `superkart_validate(rows: [...])` on the batch\n")
		sb.WriteString("2. Start from the summary counts: `null_counts`, `invalid_categorical_counts`, `invalid_numeric_counts` and `out_of_range_counts` show which fields are systematically wrong\n")
		sb.WriteString("3. Look at a few entries of `rows` for concrete values\n")
		sb.WriteString("4. Suggest fixes per field (e.g. a misspelt label, a weight given in grams instead of kilograms)\n")
		sb.WriteString("5. Re-run the fixed rows with `superkart_predict_batch`\n\n")
		sb.WriteString("Rows with status `error` passed validation but failed in the model; report those as a service problem, not a data problem.\n")
		if cfg.MaxBatchRows > 0 {
			fmt.Fprintf(&sb, "\nBatches are limited to %d rows.\n", cfg.MaxBatchRows)
		}

		return &sdkmcp.GetPromptResult{
			Description: "Workflow for fixing rejected batch rows",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
