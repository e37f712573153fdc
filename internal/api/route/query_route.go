package route

import (
	"time"

	"github.com/bassista/go_cast/internal/api/controller"
	"github.com/bassista/go_cast/internal/api/middleware"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
)

func NewQueryRouter(timeout time.Duration, group *gin.RouterGroup, queries controller.QueryService, session repository.SessionReader) {
	group.Use(middleware.RequestTimeout(timeout))

	qc := controller.NewQueryController(queries, session)

	group.GET("communities/homepage", qc.HomepageCommunities)
	group.GET("users/:addr/communities", qc.UserCommunities)
	group.GET("me/communities", qc.MyCommunities)
	group.GET("communities/:id/proposals", qc.CommunityProposals)
	group.GET("communities/:id", qc.Community)
	group.GET("proposals/:id", qc.Proposal)
}
