package domain

import (
	"errors"
	"net/http"
)

// Error codes for business logic errors.
const (
	// CodeNotFound: the requested id has no live match (or, for force-delete,
	// no record at all).
	CodeNotFound = 1
	// CodeValidation: a hook or binding rejected the input before mutation.
	CodeValidation = 2
	// CodeOperation: a mutation did not take effect although preconditions
	// appeared to hold.
	CodeOperation = 3
	// CodeService: any other failure surfaced from the repository or store,
	// wrapped with the original cause preserved.
	CodeService = 4
	// CodeUnauthorized: the request carried no valid credentials.
	CodeUnauthorized = 5
)

// AppError represents a business logic error with a code, message, and
// optional wrapped cause.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined business errors.
//
// To check whether an error matches one of these categories, use the
// corresponding helper function (IsNotFound, IsValidation, etc.) instead of
// errors.Is. The helpers use errors.As with error-code comparison, so they
// correctly match any *AppError carrying the same code, including freshly
// constructed instances from NewAppError, whereas errors.Is only matches by
// pointer identity with the specific sentinel below.
var (
	ErrNotFound     = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrValidation   = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrOperation    = &AppError{Code: CodeOperation, Message: "operation failed"}
	ErrService      = &AppError{Code: CodeService, Message: "service error"}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsOperation reports whether err is or wraps an AppError with CodeOperation.
func IsOperation(err error) bool {
	return hasCode(err, CodeOperation)
}

// IsService reports whether err is or wraps an AppError with CodeService.
func IsService(err error) bool {
	return hasCode(err, CodeService)
}

// IsUnauthorized reports whether err is or wraps an AppError with CodeUnauthorized.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// hasCode checks whether err is or wraps an *AppError with the given code.
func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code. NotFound maps to 404,
// Validation and Operation to 400, Unauthorized to 401; everything else,
// including errors that are not an *AppError at all, maps to 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeValidation, CodeOperation:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeService:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
