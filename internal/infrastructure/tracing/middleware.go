package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens one span per request and returns its ids in the
// response headers.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.FullPath()
		if name == "" {
			name = c.Request.URL.Path
		}

		span, ctx := tracer.Start(Extract(c.Request.Context(), c.Request.Header), name)
		span.Tag("http.method", c.Request.Method)
		c.Request = c.Request.WithContext(ctx)
		Inject(c.Writer.Header(), span)

		c.Next()

		span.Tag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.Fail(c.Errors.Last())
		}
		span.End()
	}
}
