package dto

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// ValidationDetail points at one field that failed request validation.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationErrorResponse creates an error envelope carrying per-field
// validation details.
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    ErrCodeValidation,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	}
}

// FormatValidationErrors turns a binding error into a validation envelope.
// The second return is false when the error did not come from the validator,
// in which case the caller should fall back to a plain bad-request reply.
func FormatValidationErrors(err error, requestID string) (ErrorResponse, bool) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ErrorResponse{}, false
	}

	details := make([]ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, ValidationDetail{
			Field:   e.Field(),
			Message: validationMessage(e),
		})
	}

	return NewValidationErrorResponse("Request validation failed", requestID, details), true
}

// validationMessage returns a human-readable message for one failed rule.
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid":
		return "Invalid UUID format"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
