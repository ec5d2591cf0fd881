package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/odontogram-api/internal/handler"
)

// DefaultMaxBodySize fits a visit with the maximum number of entries.
const DefaultMaxBodySize = 1 << 20

// SizeLimit rejects bodies larger than maxBytes. Requests without a declared
// length are cut off while being read.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				handler.NewErrorResponse(fmt.Sprintf("body size exceeds %d bytes", maxBytes)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
