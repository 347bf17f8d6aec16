package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usestring/superkart-inference/internal/service"
	"github.com/usestring/superkart-inference/pkg/types"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case types.CodeInvalidInput:
		return http.StatusBadRequest
	case types.CodeValidationFailed:
		return http.StatusUnprocessableEntity
	case types.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler writes every handler error as a JSON error body. Field
// violations of a single record are written as a violations list instead.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		body   any
	)

	var (
		he         *echo.HTTPError
		maxBytes   *http.MaxBytesError
		violations types.Violations
	)
	switch {
	case errors.As(err, &violations):
		status, body = http.StatusUnprocessableEntity, types.ViolationsResponse{Violations: violations}
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
		body = errorResponse(types.CodePayloadTooLarge, "request body too large")
	case errors.As(err, &he):
		status = he.Code
		body = errorResponse(httpErrorCode(he.Code), httpErrorMessage(he))
	default:
		coded := service.Classify(err)
		status = statusFor(coded.Code)
		body = types.ErrorResponse{Error: coded.Body()}
		if status >= http.StatusInternalServerError {
			slog.Error("request error", slog.String("code", coded.Code), slog.Any("error", err))
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Warn("writing error response", slog.Any("error", err))
	}
}

func errorResponse(code, message string) types.ErrorResponse {
	return types.ErrorResponse{Error: types.ErrorBody{Code: code, Message: message}}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusRequestEntityTooLarge:
		return types.CodePayloadTooLarge
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return types.CodeNotFound
	case http.StatusServiceUnavailable:
		return types.CodeModelUnavailable
	default:
		if status >= http.StatusInternalServerError {
			return types.CodeInternal
		}
		return types.CodeInvalidInput
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}
