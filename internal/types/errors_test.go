package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeNotFoundRunway,
		Message: "runway RW99 not found",
	}

	expected := "not_found_runway: runway RW99 not found"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from an error chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeUpstreamTimeout, "broker timed out", errDeadline)
	wrappedErr := fmt.Errorf("refresh failed: %w", appErr)

	var target *AppError
	if !errors.As(wrappedErr, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeUpstreamTimeout {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeUpstreamTimeout)
	}
	if !errors.Is(wrappedErr, errDeadline) {
		t.Error("errors.Is should reach the underlying error")
	}
}

var errDeadline = errors.New("deadline exceeded")

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidField, http.StatusBadRequest},
		{ErrCodeValidationInvalidBody, http.StatusBadRequest},
		{ErrCodeNotFoundFlight, http.StatusNotFound},
		{ErrCodeNotFoundRunway, http.StatusNotFound},
		{ErrCodeScenarioInvalidSpeed, http.StatusUnprocessableEntity},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindPredicates(t *testing.T) {
	validation := NewValidationError("altitude", "must be zero unless airborne")
	notFound := NewAppError(ErrCodeNotFoundRunway, "missing", nil)
	scenario := NewAppError(ErrCodeScenarioInvalidSpeed, "out of range", nil)
	upstream := fmt.Errorf("wrapped: %w", NewAppError(ErrCodeUpstreamTimeout, "slow", nil))
	plain := errors.New("boom")

	if !IsValidation(validation) || IsValidation(notFound) {
		t.Error("IsValidation misclassified")
	}
	if !IsNotFound(notFound) || IsNotFound(plain) {
		t.Error("IsNotFound misclassified")
	}
	if !IsInvalidScenarioParameter(scenario) || IsInvalidScenarioParameter(validation) {
		t.Error("IsInvalidScenarioParameter misclassified")
	}
	if !IsUpstreamUnavailable(upstream) || IsUpstreamUnavailable(nil) {
		t.Error("IsUpstreamUnavailable misclassified")
	}
	if KindOf(plain) != KindInternal {
		t.Errorf("KindOf(plain) = %q, want internal", KindOf(plain))
	}
}

func TestFieldOf(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NewValidationError("speed", "must be zero unless airborne"))
	if got := FieldOf(err); got != "speed" {
		t.Errorf("FieldOf() = %q, want %q", got, "speed")
	}
	if got := FieldOf(errors.New("x")); got != "" {
		t.Errorf("FieldOf(non-AppError) = %q, want empty", got)
	}
}

// TestWithDetailsDoesNotMutate verifies that WithDetails returns a copy.
func TestWithDetailsDoesNotMutate(t *testing.T) {
	orig := NewValidationError("altitude", "bad")
	cp := orig.WithDetails(map[string]any{"field": "flights[0].altitude"})

	if FieldOf(orig) != "altitude" {
		t.Errorf("original field changed to %q", FieldOf(orig))
	}
	if FieldOf(cp) != "flights[0].altitude" {
		t.Errorf("copy field = %q", FieldOf(cp))
	}
}
