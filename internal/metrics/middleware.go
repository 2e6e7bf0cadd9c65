package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware times every request under its route pattern, so /api/products/:slug
// is one series regardless of the slug. Requests that matched no route share a
// single series whatever their method or path.
func Middleware(r *Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		name := UnmatchedSeries
		if p := c.FullPath(); p != "" {
			name = c.Request.Method + " " + p
		}
		r.Observe(name, time.Since(start), c.Writer.Status())
	}
}
