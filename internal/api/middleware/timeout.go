package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestTimeout sets a per-request context deadline.
// Remote fetches started by the request are not cancelled by it: the query
// cache detaches them, so a timed out caller only stops waiting.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		// Nothing can be changed once the handler wrote a response.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			logger.WithComponent("http").Warnf("request %s %s timed out after %s", c.Request.Method, c.Request.URL.Path, d)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error":     "request timeout",
				"requestId": GetRequestID(c),
			})
		}
	}
}
