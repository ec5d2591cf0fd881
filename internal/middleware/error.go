package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error. Application
// errors keep their status and details; anything else becomes a 500 without
// leaking the underlying message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		resp := ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			TraceID: traceID,
		}
		if appErr, ok := apperrors.As(c.Errors.Last().Err); ok {
			resp.Code = appErr.StatusCode()
			resp.Details = appErr.Details
			if resp.Code != http.StatusInternalServerError {
				resp.Message = appErr.Message
			}
		}

		c.JSON(resp.Code, resp)
	}
}
