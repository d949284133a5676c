// Package dto defines the wire-level request and response shapes of the API.
//
// The data envelopes follow the react-admin data-provider contract: list
// endpoints return {"data": [...], "total": n} and single-record endpoints
// return {"data": {...}}. Errors use a separate envelope carrying a stable
// machine code and the request id.
package dto

// ListResponse is the envelope of every list endpoint. Total counts all rows
// matching the predicate, not just the returned page.
type ListResponse struct {
	Data  any   `json:"data"`
	Total int64 `json:"total"`
}

// ItemResponse is the envelope of every single-record endpoint.
type ItemResponse struct {
	Data any `json:"data"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ErrorResponse is the envelope of every error reply.
type ErrorResponse struct {
	Error     ErrorInfo `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

// NewListResponse creates a list envelope.
func NewListResponse(data any, total int64) ListResponse {
	return ListResponse{Data: data, Total: total}
}

// NewItemResponse creates a single-record envelope.
func NewItemResponse(data any) ItemResponse {
	return ItemResponse{Data: data}
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     ErrorInfo{Code: code, Message: message},
		RequestID: requestID,
	}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// BulkRequest carries the id set of a bulk update or bulk delete.
type BulkRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}
