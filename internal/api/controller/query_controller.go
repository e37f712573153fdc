package controller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/query"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
)

// QueryService is the read side used by QueryController.
type QueryService interface {
	HomepageCommunities(ctx context.Context, more bool) (query.View[remote.Community], error)
	UserCommunities(ctx context.Context, addr string, more bool) (query.View[remote.UserCommunity], error)
	CommunityProposals(ctx context.Context, communityID int, status remote.ProposalStatus, more bool) (query.View[remote.Proposal], error)
	Proposal(ctx context.Context, id int) (remote.Proposal, error)
	Community(ctx context.Context, id int) (remote.Community, error)
}

type QueryController struct {
	queries QueryService
	session repository.SessionReader
}

func NewQueryController(queries QueryService, session repository.SessionReader) *QueryController {
	return &QueryController{queries: queries, session: session}
}

// HomepageCommunities handles GET /communities/homepage[?more=true].
func (qc *QueryController) HomepageCommunities(c *gin.Context) {
	more, ok := moreParam(c)
	if !ok {
		return
	}
	view, err := qc.queries.HomepageCommunities(c.Request.Context(), more)
	respondView(c, view, err)
}

// UserCommunities handles GET /users/:addr/communities.
func (qc *QueryController) UserCommunities(c *gin.Context) {
	qc.userCommunities(c, c.Param("addr"))
}

// MyCommunities handles GET /me/communities for the connected wallet.
func (qc *QueryController) MyCommunities(c *gin.Context) {
	s, err := qc.session.Current()
	if err != nil {
		respondError(c, err)
		return
	}
	qc.userCommunities(c, s.Addr)
}

func (qc *QueryController) userCommunities(c *gin.Context, addr string) {
	more, ok := moreParam(c)
	if !ok {
		return
	}
	view, err := qc.queries.UserCommunities(c.Request.Context(), addr, more)
	respondView(c, view, err)
}

// CommunityProposals handles GET /communities/:id/proposals?status=...
func (qc *QueryController) CommunityProposals(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	status, valid := remote.ParseProposalStatus(c.Query("status"))
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown proposal status '%s'", c.Query("status"))})
		return
	}
	more, ok := moreParam(c)
	if !ok {
		return
	}
	view, err := qc.queries.CommunityProposals(c.Request.Context(), id, status, more)
	respondView(c, view, err)
}

// Proposal handles GET /proposals/:id.
func (qc *QueryController) Proposal(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := qc.queries.Proposal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Community handles GET /communities/:id.
func (qc *QueryController) Community(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	community, err := qc.queries.Community(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func respondView[T any](c *gin.Context, view query.View[T], err error) {
	if err != nil {
		logger.WithComponent("query-controller").Debugf("query %s failed: %v", view.Key, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, fmt.Errorf("%w '%s'", errInvalidID, c.Param("id")))
		return 0, false
	}
	return id, true
}

func moreParam(c *gin.Context) (bool, bool) {
	raw := c.Query("more")
	if raw == "" {
		return false, true
	}
	more, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid 'more' value '%s'", raw)})
		return false, false
	}
	return more, true
}
