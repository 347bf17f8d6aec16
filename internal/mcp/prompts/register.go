package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "forecast_sales",
		Description: "RECOMMENDED: Forecast product revenue for one store or a list of products. Walks through checking the schema, validating and predicting.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "store",
				Description: "Store description, e.g. 'Supermarket Type1, Tier 2 city, medium size, opened 2009'",
				Required:    false,
			},
			{
				Name:        "products",
				Description: "Products to forecast, free text or a list",
				Required:    false,
			},
		},
	}, HandleForecastSales(cfg))

	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "triage_batch",
		Description: "Find out why rows of a batch were rejected and how to fix the input data.",
	}, HandleTriageBatch(cfg))
}
