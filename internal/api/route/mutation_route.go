package route

import (
	"time"

	"github.com/bassista/go_cast/internal/api/controller"
	"github.com/bassista/go_cast/internal/api/middleware"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
)

func NewMutationRouter(timeout time.Duration, group *gin.RouterGroup, mutations controller.MutationService, session repository.SessionReader) {
	group.Use(middleware.RequestTimeout(timeout))

	mc := controller.NewMutationController(mutations, session)

	group.POST("communities/:id/members", mc.Join)
	group.DELETE("communities/:id/members/:addr", mc.Leave)
	group.POST("communities/:id/proposals", mc.CreateProposal)
	group.PATCH("communities/:id", mc.UpdateCommunity)
}
