package controller

import (
	"net/http"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/gin-gonic/gin"
)

// CacheAdmin is the part of the query cache exposed for maintenance.
type CacheAdmin interface {
	Invalidate(prefix cache.QueryKey) int
	Keys() []cache.QueryKey
}

type CacheController struct {
	cache CacheAdmin
}

func NewCacheController(c CacheAdmin) *CacheController {
	return &CacheController{cache: c}
}

type invalidateRequest struct {
	Key cache.QueryKey `json:"key" binding:"required,min=1"`
}

// Invalidate handles POST /cache/invalidate. Every key starting with the given
// prefix is cleared, along with the keys derived from it.
func (cc *CacheController) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if !bindJSON(c, &req) {
		return
	}
	cleared := cc.cache.Invalidate(req.Key)
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "cleared": cleared})
}

// Keys handles GET /cache/keys.
func (cc *CacheController) Keys(c *gin.Context) {
	c.JSON(http.StatusOK, cc.cache.Keys())
}
