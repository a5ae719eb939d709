// Package apierrors contains the errors returned to the API clients, as field validation errors and
// errors carrying the HTTP status that must be sent back.
package apierrors

import (
	"fmt"
	"net/http"
)

// APIError represents an error that should be returned to the client with the given HTTP status code.
type APIError struct {
	Detail     string `json:"detail"`
	statusCode int
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiError *APIError)

// WithDetail sets the detail message of the error.
func WithDetail(detail string) APIErrorOption {
	return func(apiError *APIError) {
		apiError.Detail = detail
	}
}

// WithHTTPStatusCode sets the HTTP status code associated to the error.
func WithHTTPStatusCode(statusCode int) APIErrorOption {
	return func(apiError *APIError) {
		apiError.statusCode = statusCode
	}
}

// NewAPIError creates a new APIError using the given options. If no status code was given,
// http.StatusInternalServerError will be used.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiError := &APIError{statusCode: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(apiError)
	}
	return apiError
}

// HTTPStatusCode returns the HTTP status code associated to the error.
func (a *APIError) HTTPStatusCode() int {
	return a.statusCode
}

func (a *APIError) Error() string {
	return fmt.Sprintf("%d: %s", a.statusCode, a.Detail)
}

// ValidationError represents an error in a field of some request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}
