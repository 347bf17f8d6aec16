// Package prompts contains the MCP prompts of the inference service.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	MaxBatchRows        int
	SugarContentAliases bool
}
