package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of the error carrying the same code with a
// resource-specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrConflict      = NewDomainError("CONFLICT", "Resource conflicts with an existing record")
	ErrBadReference  = NewDomainError("BAD_REFERENCE", "Referenced resource does not exist")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnscoped      = NewDomainError("UNSCOPED", "No branch scope present for a branch-scoped resource")
	ErrNotSoftDelete = NewDomainError("NOT_SOFT_DELETE", "Resource does not support soft deletion")
	ErrUnauthorized  = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden     = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
)
