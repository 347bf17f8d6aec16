// Package query projects JSON responses with jq expressions.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/superkart-inference/pkg/types"
)

// Engine executes jq expressions against response values.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result contains the outputs of a jq expression.
type Result struct {
	Values []any    `json:"values"`           // Emitted values, nulls dropped
	Errors []string `json:"errors,omitempty"` // Runtime errors, deduplicated
}

// Compile parses and compiles a jq expression.
func (e *Engine) Compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// Project runs expression against v. v may be any JSON-marshalable value;
// it is converted to plain JSON values first. maxResults <= 0 means no limit.
func (e *Engine) Project(ctx context.Context, v any, expression string, maxResults int) (*Result, error) {
	code, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	input, err := types.ToAny(v)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{Values: make([]any, 0)}
	seenErrors := make(map[string]bool)

	iter := code.RunWithContext(ctx, input)
	for {
		if maxResults > 0 && len(result.Values) >= maxResults {
			break
		}
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			msg := formatJQError(err)
			if !seenErrors[msg] {
				seenErrors[msg] = true
				result.Errors = append(result.Errors, msg)
			}
			continue
		}
		if out == nil {
			continue
		}
		result.Values = append(result.Values, out)
	}
	return result, nil
}

// formatJQError adds a hint to common runtime errors. gojq runtime errors
// are untyped, so the hints are keyed on the message text.
func formatJQError(err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return "query halted"
		}
		return fmt.Sprintf("query halted with: %v", haltErr.Value())
	}

	errStr := err.Error()
	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	}
	return errStr + hint
}
