package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "superkart_predict",
		Description: "Forecast total sales revenue for one product at one store. Returns {prediction, model_version}; set include_features=true to also get the encoded feature vector. Invalid records fail with VALIDATION_FAILED listing every offending field. Call superkart_schema first if unsure of allowed values.",
	}, ToolPredict(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "superkart_predict_batch",
		Description: "Forecast many records at once. Returns {total_records, succeeded, failed, failed_rows, statistics, results}. Invalid rows are reported per row and never fail the call. Pass jq to project the report, e.g. '.statistics.mean' or '[.results[] | select(.status==\"invalid\")]'.",
	}, ToolPredictBatch(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "superkart_validate",
		Description: "Check records against the input schema without predicting. Returns a data-quality summary (valid/invalid row counts, null and out-of-range counts per field) and the violations of each invalid row.",
	}, ToolValidate(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "superkart_schema",
		Description: "List the nine required input fields with their types, allowed categorical values and inclusive numeric ranges.",
	}, ToolSchema(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "superkart_model_info",
		Description: "Describe the model currently serving predictions: type, version, source and expected features.",
	}, ToolModelInfo(d))
}
