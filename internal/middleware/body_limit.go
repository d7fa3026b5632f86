package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit limits the maximum request body size.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// ActionBodyLimit returns middleware with a 64KB limit for action and
// configuration requests.
func ActionBodyLimit() gin.HandlerFunc {
	return BodySizeLimit(64 << 10)
}

// UploadBodyLimit returns middleware sized for project exports. The
// multipart overhead is allowed on top of maxFile.
func UploadBodyLimit(maxFile int64) gin.HandlerFunc {
	return BodySizeLimit(maxFile + 1<<20)
}
