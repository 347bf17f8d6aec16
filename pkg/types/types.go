// Package types provides shared types for superkart-inference.
// These types form the wire contract of the HTTP and MCP surfaces and are
// designed for external consumption.
package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToAny round-trips a typed value through JSON to produce an untyped any.
// Use this when a value has to be handed to code that only understands
// plain JSON values (jq programs, MCP structured content).
func ToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Feature is one encoded element of a feature vector.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`           // numeric value, or the encoding code of a categorical label
	Label string  `json:"label,omitempty"` // categorical label; empty for numeric features
}

// Categorical reports whether the feature carries a categorical label.
func (f Feature) Categorical() bool {
	return f.Label != ""
}

// FeatureVector is the ordered model input derived from one validated record.
type FeatureVector []Feature

// Names returns the feature names in order.
func (v FeatureVector) Names() []string {
	names := make([]string, len(v))
	for i, f := range v {
		names[i] = f.Name
	}
	return names
}

// Values returns the numeric values in order.
func (v FeatureVector) Values() []float64 {
	values := make([]float64, len(v))
	for i, f := range v {
		values[i] = f.Value
	}
	return values
}

// Key returns a stable string identifying the vector's content.
func (v FeatureVector) Key() string {
	var sb strings.Builder
	for i, f := range v {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	return sb.String()
}

// ErrorBody is the JSON error payload returned by the HTTP API and embedded
// in failed batch rows.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error codes carried in ErrorBody.Code.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeModelInference   = "MODEL_INFERENCE"
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodeSchemaMismatch   = "SCHEMA_MISMATCH"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL"
)
