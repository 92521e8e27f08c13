package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures a control-plane round trip
type Timer struct {
	start   time.Time
	metrics *Metrics
	action  string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, action string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		action:  action,
	}
}

// Stop stops the timer and records the round trip with its outcome
func (t *Timer) Stop(outcome string) time.Duration {
	duration := time.Since(t.start)
	t.metrics.RecordControlRequest(t.action, outcome, duration)
	return duration
}
