package controller

import (
	"io"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/gin-gonic/gin"
)

// ErrorSource publishes reported errors to channel subscribers.
type ErrorSource interface {
	SubscribeChan(buffer int) (<-chan error, func())
}

type ErrorStreamController struct {
	source    ErrorSource
	keepAlive time.Duration
}

func NewErrorStreamController(source ErrorSource, keepAlive time.Duration) *ErrorStreamController {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &ErrorStreamController{source: source, keepAlive: keepAlive}
}

type errorEvent struct {
	Message string               `json:"message"`
	Network *remote.NetworkError `json:"network,omitempty"`
}

// Stream handles GET /errors/stream as Server-Sent Events. Only errors
// reported after the client connected are sent.
func (ec *ErrorStreamController) Stream(c *gin.Context) {
	errs, unsubscribe := ec.source.SubscribeChan(16)
	defer unsubscribe()

	log := logger.WithComponent("error-stream")
	log.Debugf("client %s subscribed", c.ClientIP())

	ticker := time.NewTicker(ec.keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			log.Debugf("client %s disconnected", c.ClientIP())
			return false
		case err, ok := <-errs:
			if !ok {
				return false
			}
			ev := errorEvent{Message: err.Error()}
			if ne, isNetwork := remote.AsNetworkError(err); isNetwork {
				ev.Network = ne
			}
			c.SSEvent("error", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UnixMilli())
			return true
		}
	})
}
