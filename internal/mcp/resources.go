package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/superkart-inference/internal/mcp/tools"
)

// Resource URIs.
const (
	SchemaURI     = "superkart://schema"
	ModelURI      = "superkart://model"
	JSONSchemaURI = "superkart://schema/json"
)

// registerResources registers the static resources.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         SchemaURI,
		Name:        "Input Schema",
		Description: "Required fields, allowed categorical values and numeric ranges. The superkart_schema tool returns the same data.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.8,
		},
	}, s.handleResourceSchema)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         JSONSchemaURI,
		Name:        "Input JSON Schema",
		Description: "JSON Schema (draft 2020-12) of one input record, for client-side validation.",
		MIMEType:    "application/schema+json",
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceJSONSchema)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         ModelURI,
		Name:        "Model Info",
		Description: "Type, version and source of the model currently serving predictions.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceModel)
}

func (s *Server) handleResourceSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, tools.MimeJSON, s.deps.Service.Schema())
}

func (s *Server) handleResourceJSONSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, "application/schema+json", s.deps.Service.Registry().JSONSchema())
}

func (s *Server) handleResourceModel(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, tools.MimeJSON, s.deps.Service.ModelInfo())
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri, mimeType string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: mimeType,
				Text:     string(data),
			},
		},
	}, nil
}
