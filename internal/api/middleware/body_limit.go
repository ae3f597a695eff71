package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edmundobop/plataforma-bravo-web-sub000/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: JSON 等普通请求的上限
// multipartBytes: 照片上传（multipart/form-data）的上限
func BodyLimit(maxBytes, multipartBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			limit := maxBytes
			if strings.HasPrefix(c.ContentType(), "multipart/") {
				limit = multipartBytes
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				response.PayloadTooLarge(c)
				return
			}
		}
	}
}
