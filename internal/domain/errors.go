// Package domain defines core types, interfaces, and errors for the book catalog.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found. A resource owned by a
// different principal produces the same error as one that does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AuthenticationError indicates the caller could not be authenticated.
// It carries a single fixed message regardless of whether the credential was
// missing, malformed, unknown, or revoked.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// FieldError names one offending attribute and the rule it violated.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError indicates invalid input. For attribute payloads it carries
// one FieldError per offending field, aggregated across the whole payload.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotAuthenticated creates the uniform AuthenticationError. Every failed
// authentication path uses this constructor so callers cannot distinguish
// missing, malformed, unknown, and revoked credentials.
func ErrNotAuthenticated() *AuthenticationError {
	return &AuthenticationError{Message: "authentication required"}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrFieldValidation creates a ValidationError carrying per-field reasons.
func ErrFieldValidation(fields []FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
