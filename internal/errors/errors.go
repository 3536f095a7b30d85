// Package errors provides shared error types for the MAST and ExoMAST clients.
package errors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates an entity was not found in an archive.
type NotFoundError struct {
	Archive    string // "mast", "exomast"
	EntityType string // "observation", "exoplanet", "target"
	Identifier string // obs_id, exoplanet id, or target name
}

func (e *NotFoundError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("%s not found in %s: %s", e.EntityType, e.Archive, e.Identifier)
	}
	return fmt.Sprintf("not found in %s: %s", e.Archive, e.Identifier)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(archive, entityType, identifier string) *NotFoundError {
	return &NotFoundError{
		Archive:    archive,
		EntityType: entityType,
		Identifier: identifier,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// UpstreamError is returned when a remote service answers with a non-2xx
// status or reports a failed request in its payload.
type UpstreamError struct {
	Service    string // service or endpoint that failed
	StatusCode int    // HTTP status, 0 when the failure came from the payload
	Body       string // truncated response body or upstream message
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Service, e.Body)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(service string, statusCode int, body string) *UpstreamError {
	return &UpstreamError{
		Service:    service,
		StatusCode: statusCode,
		Body:       body,
	}
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream returns true if err is or wraps an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}
