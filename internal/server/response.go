package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

func mapError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "profile not found"
	case errors.Is(err, converter.ErrSerialization):
		return http.StatusInternalServerError, "SERIALIZATION_FAILED", "could not generate the spreadsheet, please try again"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED", "request cancelled"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// handleError maps err to a response, logging server-side failures.
func (s *Server) handleError(c *gin.Context, err error) {
	status, code, msg := mapError(err)
	if status >= 500 {
		s.log.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
