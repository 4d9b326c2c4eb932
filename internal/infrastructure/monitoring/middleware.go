package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request counts and latency per route template.
// Requests to skip paths, such as the metrics endpoint itself or a
// long-lived WebSocket, are not recorded.
func Middleware(metrics *Metrics, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures one dispatcher operation.
type Timer struct {
	metrics *Metrics
	op      string
	start   time.Time
	stopped bool
}

// NewTimer starts timing op.
func NewTimer(metrics *Metrics, op string) *Timer {
	return &Timer{metrics: metrics, op: op, start: time.Now()}
}

// Stop records the operation outcome once. Later calls are ignored.
func (t *Timer) Stop(status string) time.Duration {
	elapsed := time.Since(t.start)
	if t.stopped {
		return elapsed
	}
	t.stopped = true
	t.metrics.RecordOperation(t.op, status, elapsed)
	return elapsed
}
