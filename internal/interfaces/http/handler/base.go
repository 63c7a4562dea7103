// Package handler exposes the levy application services over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
	"github.com/marketlevy/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	resp := dto.NewErrorResponse(code, message)
	resp.Error.RequestID = getRequestID(c)
	c.JSON(dto.GetHTTPStatus(code), resp)
}

// BadRequest sends a 400 validation response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeValidation, message)
}

// HandleError converts service errors to HTTP responses. Anything that is
// not a DomainError has already escaped the service boundary and is logged
// here before a generic 500 goes out.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	domainErr, ok := shared.AsDomainError(err)
	if !ok {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeUnexpected, "An unexpected error occurred")
		return
	}

	code := dto.FromDomainCode(domainErr.Code)
	resp := dto.NewErrorResponse(code, domainErr.Message)
	resp.Error.RequestID = getRequestID(c)
	resp.Error.CorrelationID = domainErr.CorrelationID
	c.JSON(dto.GetHTTPStatus(code), resp)
}

// pathUUID parses a uuid path parameter, answering 400 when malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// actorID returns the authenticated user, answering 401 when absent
func (h *BaseHandler) actorID(c *gin.Context) (uuid.UUID, bool) {
	id := middleware.GetActorID(c)
	if id == uuid.Nil {
		h.ErrorWithCode(c, dto.ErrCodeUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}
