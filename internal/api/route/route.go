package route

import (
	"net/http"

	"github.com/bassista/go_cast/internal/api/controller"
	"github.com/bassista/go_cast/internal/app"
	"github.com/bassista/go_cast/internal/metrics"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	timeout := appCtx.Config.Server.RequestTimeout

	NewQueryRouter(timeout, r.Group(""), appCtx.Queries, appCtx.Repo)
	NewMutationRouter(timeout, r.Group(""), appCtx.Mutations, appCtx.Repo)
	NewCacheRouter(timeout, r.Group("/cache"), appCtx.Cache)
	NewSessionRouter(timeout, r.Group("/session"), appCtx.Repo, appCtx.OnSessionChange)

	// long lived, no request timeout
	ec := controller.NewErrorStreamController(appCtx.Sink, 0)
	r.GET("/errors/stream", ec.Stream)

	lc := controller.NewLayoutController()
	r.POST("/layout/sticky", lc.Sticky)
}
