package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/tabular"
	"github.com/usestring/superkart-inference/internal/transform"
	"github.com/usestring/superkart-inference/pkg/types"
)

// CodedError is an error with an associated error code from pkg/types.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// Body returns the wire form of the error.
func (e *CodedError) Body() types.ErrorBody {
	return types.ErrorBody{Code: e.Code, Message: e.Message}
}

// MissingColumnsError is returned for a table lacking required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{Code: types.CodeInvalidInput, Message: message}
}

// Classify maps an error from the service to a CodedError. Errors that are
// already coded are returned unchanged.
func Classify(err error) *CodedError {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	var (
		violations types.Violations
		missing    *MissingColumnsError
		mismatch   *transform.SchemaMismatchError
		inference  *model.InferenceError
	)
	switch {
	case errors.As(err, &violations):
		return &CodedError{Code: types.CodeValidationFailed, Message: violations.Error(), Cause: err}
	case errors.As(err, &missing):
		return &CodedError{Code: types.CodeInvalidInput, Message: missing.Error(), Cause: err}
	case errors.Is(err, tabular.ErrTooManyRows):
		return &CodedError{Code: types.CodePayloadTooLarge, Message: err.Error(), Cause: err}
	case errors.Is(err, tabular.ErrEmpty), errors.Is(err, tabular.ErrMalformed):
		return &CodedError{Code: types.CodeInvalidInput, Message: err.Error(), Cause: err}
	case errors.As(err, &mismatch):
		return &CodedError{Code: types.CodeSchemaMismatch, Message: mismatch.Error(), Cause: err}
	case errors.As(err, &inference):
		return &CodedError{Code: types.CodeModelInference, Message: inference.Error(), Cause: err}
	case errors.Is(err, model.ErrUnavailable):
		return &CodedError{Code: types.CodeModelUnavailable, Message: err.Error(), Cause: err}
	default:
		return &CodedError{Code: types.CodeInternal, Message: err.Error(), Cause: err}
	}
}
