package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. Oversized declared lengths are
// refused before the handler runs. Chunked bodies are cut off while reading
// and surface as *http.MaxBytesError from binding, which
// HandleValidationError maps to the same ERR_REQUEST_TOO_LARGE answer.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
