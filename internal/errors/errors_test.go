package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("root")
	testCases := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"Validation", NewValidationError("bad", cause), ErrorTypeValidation, http.StatusBadRequest},
		{"ModelUnavailable", NewModelUnavailableError("no model", cause), ErrorTypeModelUnavailable, http.StatusServiceUnavailable},
		{"Network", NewNetworkError("down", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"Processing", NewProcessingError("failed", cause), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"Cancelled", NewCancelledError("stopped", cause), ErrorTypeCancelled, StatusClientClosedRequest},
		{"Timeout", NewTimeoutError("slow", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"NotFound", NewNotFoundError("gone", cause), ErrorTypeNotFound, http.StatusNotFound},
		{"TooLarge", NewTooLargeError("big", cause), ErrorTypeTooLarge, http.StatusRequestEntityTooLarge},
		{"Busy", NewBusyError("full", cause), ErrorTypeBusy, http.StatusTooManyRequests},
		{"Internal", NewInternalError("oops", cause), ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Type != tc.typ || tc.err.StatusCode != tc.status {
				t.Errorf("Expected %s/%d, got %s/%d", tc.typ, tc.status, tc.err.Type, tc.err.StatusCode)
			}
			if !errors.Is(tc.err, cause) {
				t.Error("Expected cause to be unwrappable")
			}
		})
	}
}

func TestIsTypeAndStatusThroughWrapping(t *testing.T) {
	err := fmt.Errorf("job 7: %w", NewModelUnavailableError("no model", nil))
	if !IsType(err, ErrorTypeModelUnavailable) {
		t.Error("Expected wrapped AppError to be detected")
	}
	if IsType(err, ErrorTypeValidation) {
		t.Error("Expected type mismatch")
	}
	if got := GetStatusCode(err); got != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", got)
	}
	if got := GetStatusCode(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("Expected 500 for plain errors, got %d", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := NewValidationError("bad input", nil).Error(); got != "validation: bad input" {
		t.Errorf("unexpected message %q", got)
	}
	withCause := NewProcessingError("decode", errors.New("eof")).Error()
	if withCause != "processing: decode (caused by: eof)" {
		t.Errorf("unexpected message %q", withCause)
	}
	d := NewValidationError("x", nil).WithDetails("field y")
	if d.Details != "field y" {
		t.Error("Expected details to be set")
	}
}
