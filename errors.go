package strata

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeBackend    ErrorType = "backend"
)

// Error codes for the query and storage layers
const (
	ErrCodeMalformedQuery       = "MALFORMED_QUERY"
	ErrCodeInvalidQueryGroup    = "INVALID_QUERY_GROUP"
	ErrCodeUnsupportedOperator  = "UNSUPPORTED_OPERATOR"
	ErrCodeNotComparable        = "NOT_COMPARABLE"
	ErrCodeKeyExists            = "KEY_EXISTS"
	ErrCodeNoResultsFound       = "NO_RESULTS_FOUND"
	ErrCodeMultipleResultsFound = "MULTIPLE_RESULTS_FOUND"
	ErrCodeBackendError         = "BACKEND_ERROR"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// StrataError represents unified errors from the query and storage layers
type StrataError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *StrataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *StrataError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a StrataError
func (e *StrataError) WithDetail(key string, value any) *StrataError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a StrataError
func (e *StrataError) WithCause(cause error) *StrataError {
	e.Cause = cause
	return e
}

// NewStrataError creates a new StrataError
func NewStrataError(errorType ErrorType, code, message string) *StrataError {
	return &StrataError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewMalformedQueryError reports an invalid query AST shape at construction
// time.
func NewMalformedQueryError(message string) *StrataError {
	return NewStrataError(ErrorTypeValidation, ErrCodeMalformedQuery, message)
}

// NewInvalidQueryGroupError reports a QueryGroup whose boolean operator is
// not and/or/not.
func NewInvalidQueryGroupError(operator string) *StrataError {
	return NewStrataError(ErrorTypeValidation, ErrCodeInvalidQueryGroup,
		fmt.Sprintf("query group operator must be <and>, <or>, or <not>, got %q", operator))
}

// NewUnsupportedOperatorError reports an operator the target backend cannot
// translate.
func NewUnsupportedOperatorError(operator, backend string) *StrataError {
	return NewStrataError(ErrorTypeQuery, ErrCodeUnsupportedOperator,
		fmt.Sprintf("operator %q is not supported by the %s backend", operator, backend)).
		WithDetail("operator", operator).
		WithDetail("backend", backend)
}

// NewNotComparableError reports operands that have no total order for a
// range operator.
func NewNotComparableError(fieldValue, argument any) *StrataError {
	return NewStrataError(ErrorTypeQuery, ErrCodeNotComparable,
		fmt.Sprintf("values of type %T and %T are not order-comparable", fieldValue, argument))
}

// NewKeyExistsError reports a duplicate primary key on a strict insert.
func NewKeyExistsError(key any) *StrataError {
	return NewStrataError(ErrorTypeConflict, ErrCodeKeyExists,
		fmt.Sprintf("key (%v) already exists", key)).
		WithDetail("key", key)
}

// NewNoResultsFoundError reports a FindOne that matched nothing.
func NewNoResultsFoundError() *StrataError {
	return NewStrataError(ErrorTypeNotFound, ErrCodeNoResultsFound,
		"query for find one must return exactly one result; returned 0")
}

// NewMultipleResultsFoundError reports a FindOne that matched more than one
// record, including the exact count.
func NewMultipleResultsFoundError(count int) *StrataError {
	return NewStrataError(ErrorTypeConflict, ErrCodeMultipleResultsFound,
		fmt.Sprintf("query for find one must return exactly one result; returned %d", count)).
		WithDetail("count", count)
}

// NewBackendError wraps a backend-transport failure without masking it.
func NewBackendError(backend, message string, cause error) *StrataError {
	return NewStrataError(ErrorTypeBackend, ErrCodeBackendError,
		fmt.Sprintf("%s: %s", backend, message)).
		WithCause(cause)
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *StrataError {
	return NewStrataError(ErrorTypeInternal, ErrCodeInternalError, message).WithCause(cause)
}

// hasCode reports whether err is a StrataError carrying the given code.
func hasCode(err error, code string) bool {
	var se *StrataError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsMalformedQueryError checks if an error is a malformed query error
func IsMalformedQueryError(err error) bool {
	return hasCode(err, ErrCodeMalformedQuery) || hasCode(err, ErrCodeInvalidQueryGroup)
}

// IsUnsupportedOperatorError checks if an error is an unsupported operator error
func IsUnsupportedOperatorError(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperator)
}

// IsNotComparableError checks if an error is a comparison type error
func IsNotComparableError(err error) bool {
	return hasCode(err, ErrCodeNotComparable)
}

// IsKeyExistsError checks if an error is a duplicate key error
func IsKeyExistsError(err error) bool {
	return hasCode(err, ErrCodeKeyExists)
}

// IsNoResultsFoundError checks if an error is a no results error
func IsNoResultsFoundError(err error) bool {
	return hasCode(err, ErrCodeNoResultsFound)
}

// IsMultipleResultsFoundError checks if an error is a multiple results error
func IsMultipleResultsFoundError(err error) bool {
	return hasCode(err, ErrCodeMultipleResultsFound)
}
