package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound  = errors.New("resource not found")
	ErrConflict          = errors.New("conflict")
	ErrCommunityNotFound = errors.New("community not found")
	ErrLoanNotFound      = errors.New("loan not found")

	// Membership errors
	ErrAlreadyMember = errors.New("user is already a member")
	ErrCommunityFull = errors.New("community member capacity reached")
	ErrNotMember     = errors.New("user is not a member of the community")

	// Community lifecycle errors
	ErrCommunityArchived = errors.New("community is archived")

	// Loan lifecycle errors
	ErrLoanNotPending = errors.New("loan is no longer pending")
	ErrNotEligible    = errors.New("user is not eligible to vote on this loan")
	ErrInvalidAmount  = errors.New("loan amount must be positive")
	ErrInvalidChoice  = errors.New("vote choice is not recognized")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("durable store unavailable")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewUnavailableError wraps a store failure so callers know the operation is retryable
func NewUnavailableError(err error, message string) error {
	return &CustomError{
		Err:     ErrStoreUnavailable,
		Cause:   err,
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Cause   error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
