package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/odontogram-api/internal/service/audit"
)

// AuditContext records the client address and user agent on the request
// context so audit entries written by services carry them.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClient(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
