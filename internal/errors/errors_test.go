package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		expected string
	}{
		{
			name: "with entity type",
			err: &NotFoundError{
				Archive:    "mast",
				EntityType: "observation",
				Identifier: "hst_12345",
			},
			expected: "observation not found in mast: hst_12345",
		},
		{
			name: "without entity type",
			err: &NotFoundError{
				Archive:    "exomast",
				Identifier: "WASP-18 b",
			},
			expected: "not found in exomast: WASP-18 b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("NotFoundError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("mast", "target", "M31")

	if err.Archive != "mast" {
		t.Errorf("Archive = %q, want %q", err.Archive, "mast")
	}
	if err.EntityType != "target" {
		t.Errorf("EntityType = %q, want %q", err.EntityType, "target")
	}
	if err.Identifier != "M31" {
		t.Errorf("Identifier = %q, want %q", err.Identifier, "M31")
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name: "with field and value",
			err: &ValidationError{
				Field:   "radius",
				Value:   "far",
				Message: "must be a number with an optional unit",
			},
			expected: "validation failed for radius=\"far\": must be a number with an optional unit",
		},
		{
			name: "with field only",
			err: &ValidationError{
				Field:   "obs_id",
				Message: "is required",
			},
			expected: "validation failed for obs_id: is required",
		},
		{
			name: "message only",
			err: &ValidationError{
				Message: "invalid input",
			},
			expected: "validation failed: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("data_type", "spectra", "must be observations or products")

	if err.Field != "data_type" {
		t.Errorf("Field = %q, want %q", err.Field, "data_type")
	}
	if err.Value != "spectra" {
		t.Errorf("Value = %q, want %q", err.Value, "spectra")
	}
	if err.Message != "must be observations or products" {
		t.Errorf("Message = %q, want %q", err.Message, "must be observations or products")
	}
}

func TestUpstreamError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *UpstreamError
		expected string
	}{
		{
			name:     "status and body",
			err:      NewUpstreamError("exomast identifiers", 404, "not found"),
			expected: "exomast identifiers returned HTTP 404: not found",
		},
		{
			name:     "status only",
			err:      NewUpstreamError("Mast.Caom.Cone", 502, ""),
			expected: "Mast.Caom.Cone returned HTTP 502",
		},
		{
			name:     "payload failure",
			err:      NewUpstreamError("Mast.Caom.Filtered", 0, "bad filter"),
			expected: "Mast.Caom.Filtered request failed: bad filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("UpstreamError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	notFoundErr := &NotFoundError{Archive: "mast", Identifier: "123"}
	validationErr := &ValidationError{Message: "test"}
	plainErr := errors.New("plain error")

	if !IsNotFound(notFoundErr) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
	if !IsNotFound(fmt.Errorf("lookup: %w", notFoundErr)) {
		t.Error("IsNotFound should return true for wrapped NotFoundError")
	}
	if IsNotFound(validationErr) {
		t.Error("IsNotFound should return false for ValidationError")
	}
	if IsNotFound(plainErr) {
		t.Error("IsNotFound should return false for plain error")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound should return false for nil")
	}
}

func TestIsValidation(t *testing.T) {
	notFoundErr := &NotFoundError{Archive: "mast", Identifier: "123"}
	validationErr := &ValidationError{Message: "test"}
	plainErr := errors.New("plain error")

	if IsValidation(notFoundErr) {
		t.Error("IsValidation should return false for NotFoundError")
	}
	if !IsValidation(validationErr) {
		t.Error("IsValidation should return true for ValidationError")
	}
	if IsValidation(plainErr) {
		t.Error("IsValidation should return false for plain error")
	}
	if IsValidation(nil) {
		t.Error("IsValidation should return false for nil")
	}
}

func TestIsUpstream(t *testing.T) {
	upstreamErr := NewUpstreamError("exomast", 500, "boom")

	if !IsUpstream(upstreamErr) {
		t.Error("IsUpstream should return true for UpstreamError")
	}
	if !IsUpstream(fmt.Errorf("tool failed: %w", upstreamErr)) {
		t.Error("IsUpstream should return true for wrapped UpstreamError")
	}
	if IsUpstream(&ValidationError{Message: "test"}) {
		t.Error("IsUpstream should return false for ValidationError")
	}
	if IsUpstream(nil) {
		t.Error("IsUpstream should return false for nil")
	}
}
