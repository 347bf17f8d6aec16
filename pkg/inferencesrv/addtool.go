package inferencesrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/superkart-inference/internal/mcp/tools"
)

// AddTool registers a tool with the server, validating that the output type's
// zero value passes the schema the SDK infers for it. A nil slice marshals as
// null while the inferred schema demands an array, which would otherwise only
// fail when a client calls the tool.
//
// Use this instead of [sdkmcp.AddTool] to get the additional check.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
