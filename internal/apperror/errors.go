// Package apperror defines the error taxonomy shared by the loader, the weather
// client and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is a typed string for categorizing application errors.
type Code string

const (
	// Startup (fatal)
	CodeDataLoad Code = "data_load_failed"

	// Validation (400)
	CodeValidationQuery       Code = "validation_invalid_query"
	CodeValidationCoordinates Code = "validation_invalid_coordinates"
	CodeValidationDays        Code = "validation_invalid_days"
	CodeValidationCragID      Code = "validation_invalid_crag_id"

	// Not Found (404)
	CodeNotFoundCrag Code = "not_found_crag"

	// Upstream (502)
	CodeUpstreamForecast  Code = "upstream_forecast_unavailable"
	CodeUpstreamMalformed Code = "upstream_malformed_response"

	// Internal (500)
	CodeInternalUnexpected Code = "internal_unexpected_error"
)

// HTTPStatus maps a Code to its HTTP status. Unknown codes map to 500.
func (c Code) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	case c == CodeDataLoad:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the error type carried across package boundaries. Err is never
// shown to clients.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// New creates an AppError with the given code, message and optional cause.
func New(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// DataLoad reports a missing or unparsable dataset source.
func DataLoad(message string, err error) *AppError {
	return New(CodeDataLoad, message, err)
}

// Upstream reports a forecast API that is unreachable or answered non-2xx.
func Upstream(message string, err error) *AppError {
	return New(CodeUpstreamForecast, message, err)
}

// Malformed reports an upstream payload that breaks the parallel-array contract.
func Malformed(message string) *AppError {
	return New(CodeUpstreamMalformed, message, nil)
}

// NotFound reports an unknown crag id.
func NotFound(message string) *AppError {
	return New(CodeNotFoundCrag, message, nil)
}

// Validation reports a bad request parameter.
func Validation(code Code, message string) *AppError {
	return New(code, message, nil)
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
