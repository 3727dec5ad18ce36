// Package errors provides the categorized error taxonomy for the contact
// sync system. Every engine-level failure is reported as a CategorizedError
// with a stable code, so API callers can render a retry affordance without
// inspecting error strings.
package errors

import (
	"fmt"
	"net/http"

	"github.com/contact-sync/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryPermission represents address-book permission errors
	CategoryPermission ErrorCategory = "permission"
	// CategoryAddressBook represents device address-book read errors
	CategoryAddressBook ErrorCategory = "address_book"
	// CategoryDirectory represents remote directory lookup errors
	CategoryDirectory ErrorCategory = "directory"
	// CategoryPersistence represents secure-store persistence errors
	CategoryPersistence ErrorCategory = "persistence"
	// CategoryValidation represents request validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategorySystem represents internal system errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError for API responses
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewPermissionDeniedError creates a permission denied error. This is a
// normal outcome recoverable by user action, never retried automatically.
func NewPermissionDeniedError(state types.PermissionState) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPermission,
		StatusCode: http.StatusForbidden,
		Code:       "PERMISSION_DENIED",
		Message:    "address book permission not granted",
		Details: map[string]interface{}{
			"permissionState": string(state),
		},
	}
}

// NewReadFailureError creates an address-book read error. The previous
// snapshot stays authoritative; the caller may retry.
func NewReadFailureError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAddressBook,
		StatusCode: http.StatusBadGateway,
		Code:       "READ_FAILURE",
		Message:    "failed to read device address book",
		Cause:      cause,
	}
}

// NewLookupBatchFailureError creates a directory lookup batch error.
// Batch failures are isolated: they are logged and absorbed during
// reconciliation, never escalated past the pass itself.
func NewLookupBatchFailureError(batch int, size int, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDirectory,
		StatusCode: http.StatusBadGateway,
		Code:       "LOOKUP_BATCH_FAILURE",
		Message:    fmt.Sprintf("directory lookup failed for batch %d", batch),
		Cause:      cause,
		Details: map[string]interface{}{
			"batch":     batch,
			"batchSize": size,
		},
	}
}

// NewPersistenceFailureError creates a secure-store persistence error.
// When persistence fails the in-memory snapshot is not advanced.
func NewPersistenceFailureError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryPersistence,
		StatusCode: http.StatusInternalServerError,
		Code:       "PERSISTENCE_FAILURE",
		Message:    fmt.Sprintf("secure store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	if catErr, ok := err.(*CategorizedError); ok {
		return catErr
	}

	if svcErr, ok := err.(*types.ServiceError); ok {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is worth retrying. Permission errors
// are not: only the user can resolve them.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryAddressBook, CategoryDirectory, CategoryPersistence:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsPermissionDenied reports whether err is the permission-denied outcome
func IsPermissionDenied(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Code == "PERMISSION_DENIED"
}
