package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Handlers and services MUST use these constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidField  ErrorCode = "validation_invalid_field"
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidEntity ErrorCode = "validation_invalid_entity"
	ErrCodeValidationInvalidQuery  ErrorCode = "validation_invalid_query"
	ErrCodeValidationInvalidBody   ErrorCode = "validation_invalid_body"

	// Not Found (404)
	ErrCodeNotFoundFlight ErrorCode = "not_found_flight"
	ErrCodeNotFoundRunway ErrorCode = "not_found_runway"
	ErrCodeNotFoundEntity ErrorCode = "not_found_entity"

	// Scenario parameters (422)
	ErrCodeScenarioInvalidWeather ErrorCode = "scenario_invalid_weather"
	ErrCodeScenarioInvalidTraffic ErrorCode = "scenario_invalid_traffic"
	ErrCodeScenarioInvalidSpeed   ErrorCode = "scenario_invalid_speed"

	// Upstream (502/504)
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamTimeout     ErrorCode = "upstream_timeout"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamBadResponse ErrorCode = "upstream_bad_response"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeInternalNoSnapshot ErrorCode = "internal_no_snapshot"
)

// ErrorKind groups error codes into the four failure classes callers branch on.
type ErrorKind string

const (
	KindValidation               ErrorKind = "validation"
	KindNotFound                 ErrorKind = "not_found"
	KindInvalidScenarioParameter ErrorKind = "invalid_scenario_parameter"
	KindUpstreamUnavailable      ErrorKind = "upstream_unavailable"
	KindInternal                 ErrorKind = "internal"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "scenario_"):
		return http.StatusUnprocessableEntity // 422
	case c == ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout // 504
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// Kind returns the failure class for the code.
func (c ErrorCode) Kind() ErrorKind {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return KindValidation
	case strings.HasPrefix(s, "not_found_"):
		return KindNotFound
	case strings.HasPrefix(s, "scenario_"):
		return KindInvalidScenarioParameter
	case strings.HasPrefix(s, "upstream_"):
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// AppError is the standard application error type used throughout the service.
// Domain, adapter and handler errors are expressed as AppError to get
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// NewValidationError builds a validation failure naming the offending field.
func NewValidationError(field, message string) *AppError {
	return NewAppErrorWithDetails(ErrCodeValidationInvalidField,
		fmt.Sprintf("%s: %s", field, message), nil, map[string]any{"field": field})
}

// KindOf classifies err. Errors that are not AppErrors are internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code.Kind()
	}
	return KindInternal
}

// FieldOf returns the offending field recorded on a validation error, if any.
func FieldOf(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return ""
	}
	field, _ := appErr.Details["field"].(string)
	return field
}

// IsValidation reports whether err is a validation_* error.
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not_found_* error.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// IsUpstreamUnavailable reports whether err is an upstream_* error, including timeouts.
func IsUpstreamUnavailable(err error) bool {
	return err != nil && KindOf(err) == KindUpstreamUnavailable
}

// IsInvalidScenarioParameter reports whether err rejected a scenario command (scenario_*).
func IsInvalidScenarioParameter(err error) bool {
	return err != nil && KindOf(err) == KindInvalidScenarioParameter
}
