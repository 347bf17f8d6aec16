// Package tools contains the MCP tool implementations of the inference
// service.
package tools

import (
	"github.com/usestring/superkart-inference/internal/service"
)

// MimeJSON is the MIME type of JSON tool and resource content.
const MimeJSON = "application/json"

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Service *service.Service

	// MaxRows caps superkart_predict_batch inputs. Zero falls back to the
	// service limit.
	MaxRows int
}

func (d *Deps) maxRows() int {
	if d.MaxRows > 0 {
		return d.MaxRows
	}
	return d.Service.MaxBatchRows()
}
