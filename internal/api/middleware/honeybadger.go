package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/bassista/go_cast/internal/notify"
	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// HoneybadgerMiddleware reports panics and failed requests to Honeybadger.
// A nil reporter disables it. On panic it notifies and re-panics so that
// gin.Recovery still writes the response.
func HoneybadgerMiddleware(reporter notify.HoneybadgerReporter, logger *logrus.Logger) gin.HandlerFunc {
	if reporter == nil {
		logger.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	logger.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		ctx := honeybadger.Context{"request_id": GetRequestID(c)}
		defer func() {
			if rec := recover(); rec != nil {
				ctx["stack"] = string(debug.Stack())
				_, _ = reporter.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, ctx, honeybadger.Tags{"panic", "http"})
				logger.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		// 404 and 504 are routine for a local gateway; remote failures reach
		// Honeybadger through the error sink instead.
		status := c.Writer.Status()
		if status < 400 || status == 404 || status == 504 {
			return
		}
		msg := fmt.Sprintf("HTTP %d: %s %s", status, c.Request.Method, c.FullPath())
		if status >= 500 {
			_, _ = reporter.Notify("Error: "+msg, c.Request, ctx, honeybadger.Tags{"5XX", "http"})
		} else {
			_, _ = reporter.Notify("Warning: "+msg, ctx, honeybadger.Tags{"4XX", "http"})
		}
		logger.Warnf("Honeybadger reported %s", msg)
	}
}
