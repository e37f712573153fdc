package route

import (
	"time"

	"github.com/bassista/go_cast/internal/api/controller"
	"github.com/bassista/go_cast/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

func NewCacheRouter(timeout time.Duration, group *gin.RouterGroup, store controller.CacheAdmin) {
	group.Use(middleware.RequestTimeout(timeout))

	cc := controller.NewCacheController(store)

	group.POST("invalidate", cc.Invalidate)
	group.GET("keys", cc.Keys)
}
