package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/usestring/superkart-inference/internal/service"
	"github.com/usestring/superkart-inference/pkg/types"
)

// ErrCodeTimeout is reported when a tool call runs out of time.
const ErrCodeTimeout = "TIMEOUT"

// WrapServiceError converts an error from the service to a coded error whose
// message is what the client sees.
func WrapServiceError(err error) error {
	if err == nil {
		return nil
	}

	var coded *service.CodedError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		coded = &service.CodedError{Code: ErrCodeTimeout, Message: "request timed out", Cause: err}
	default:
		coded = service.Classify(err)
	}

	level := slog.LevelWarn
	if coded.Code == types.CodeInternal || coded.Code == types.CodeModelInference {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "tool error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)

	return coded
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return service.ErrInvalidInput(message)
}
