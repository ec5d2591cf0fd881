package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/odontogram-api/internal/handler"
	apperrors "github.com/jwalitptl/odontogram-api/pkg/errors"
)

// Recovery turns a panic into a 500 error envelope. The panic is logged with
// the request-scoped logger so it carries the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestLogger(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Str("client_ip", c.ClientIP()).
				Msg("recovered from panic")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			handler.RespondError(c, apperrors.Internal(fmt.Errorf("panic: %v", rec)))
		}()
		c.Next()
	}
}

// requestLogger returns the logger RequestID attached, or the global one.
func requestLogger(c *gin.Context) *zerolog.Logger {
	if l := zerolog.Ctx(c.Request.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
