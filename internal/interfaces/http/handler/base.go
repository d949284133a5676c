// Package handler contains the HTTP handlers. Almost everything is served by
// the generic ResourceHandler; only health and base helpers live beside it.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// OK sends a single-record envelope.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewItemResponse(data))
}

// List sends a list envelope with the total row count.
func (h *BaseHandler) List(c *gin.Context, data any, total int64) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created sends a 201 single-record envelope.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewItemResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// HandleBindError answers a failed request binding. Validator failures get
// the per-field validation envelope; anything else (unreadable body, type
// mismatches) is reported as invalid JSON.
func (h *BaseHandler) HandleBindError(c *gin.Context, err error) {
	if resp, ok := dto.FormatValidationErrors(err, getRequestID(c)); ok {
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
}

// HandleError converts an error into its HTTP response. Domain errors map
// through the code table; anything else passes through as an internal error
// carrying the original message, so callers see what actually failed.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, err.Error())
}
