// Package inferencesrv assembles and runs the SuperKart inference service.
//
// A Server loads the model, builds the validation and batch pipeline, and
// serves it over HTTP (REST endpoints plus MCP on /mcp) or over MCP stdio,
// depending on TRANSPORT.
//
// # Basic Usage
//
//	server, err := inferencesrv.NewServer(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Add MCP tools with access to the inference service:
//
//	import mcp "github.com/modelcontextprotocol/go-sdk/mcp"
//
//	type TopInput struct {
//	    Rows []map[string]any `json:"rows"`
//	}
//
//	type TopOutput struct {
//	    Best int `json:"best"`
//	}
//
//	server, err := inferencesrv.NewServer(ctx,
//	    inferencesrv.WithDepsTool(
//	        &mcp.Tool{Name: "top_row", Description: "Row with the highest forecast"},
//	        func(d *inferencesrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, in TopInput) (*mcp.CallToolResult, TopOutput, error) {
//	            return func(ctx context.Context, req *mcp.CallToolRequest, in TopInput) (*mcp.CallToolResult, TopOutput, error) {
//	                // d.Service.PredictBatch(...)
//	                return nil, TopOutput{}, nil
//	            }
//	        },
//	    ),
//	)
//
// # Configuration
//
// Configuration comes from the environment (and a .env file); see
// internal/config. Options override individual settings:
//
//	server, err := inferencesrv.NewServer(ctx,
//	    inferencesrv.WithLogLevel("debug"),
//	    inferencesrv.WithModelPath("/srv/models/superkart.yaml"),
//	)
package inferencesrv
