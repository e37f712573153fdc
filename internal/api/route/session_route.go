package route

import (
	"time"

	"github.com/bassista/go_cast/internal/api/controller"
	"github.com/bassista/go_cast/internal/api/middleware"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
)

func NewSessionRouter(timeout time.Duration, group *gin.RouterGroup, store controller.SessionStore, onChange repository.ChangeFunc) {
	group.Use(middleware.RequestTimeout(timeout))

	sc := controller.NewSessionController(store, onChange)

	group.GET("", sc.Get)
	group.PUT("", sc.Connect)
	group.DELETE("", sc.Disconnect)
}
