package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeValidation is used for request validation failures
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used when a unique constraint rejects a write
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeBadReference is used when a write points at a missing record
	ErrCodeBadReference = "ERR_BAD_REFERENCE"
)

// Scope and access error codes
const (
	// ErrCodeUnscoped is used when a branch-scoped write arrives without a
	// branch identity
	ErrCodeUnscoped = "ERR_UNSCOPED"
	// ErrCodeUnauthorized is used when authentication is required but missing
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeBadReference: http.StatusBadRequest,

	// A missing scope is a client error: the caller forgot the branch
	// header, nothing is wrong server-side.
	ErrCodeUnscoped:     http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to wire-level codes.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":       ErrCodeNotFound,
	"CONFLICT":        ErrCodeConflict,
	"BAD_REFERENCE":   ErrCodeBadReference,
	"INVALID_INPUT":   ErrCodeInvalidInput,
	"UNSCOPED":        ErrCodeUnscoped,
	"NOT_SOFT_DELETE": ErrCodeBadRequest,
	"UNAUTHORIZED":    ErrCodeUnauthorized,
	"FORBIDDEN":       ErrCodeForbidden,
}

// NormalizeErrorCode converts a domain error code to the wire-level format.
// If the code is already in the wire format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
