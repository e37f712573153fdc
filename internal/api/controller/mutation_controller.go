package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/mutation"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/bassista/go_cast/internal/signer"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// MutationService is the write side used by MutationController.
type MutationService interface {
	Join(ctx context.Context, call mutation.Call, communityID int) (remote.CommunityUser, error)
	Leave(ctx context.Context, call mutation.Call, communityID int) error
	CreateProposal(ctx context.Context, call mutation.Call, payload remote.ProposalPayload) (remote.Proposal, error)
	UpdateCommunity(ctx context.Context, call mutation.Call, communityID int, update remote.CommunityUpdate) (remote.Community, error)
}

// SignedBody is the wallet reply the browser sends along with every write.
// Addr and ServiceUID default to the connected session when omitted.
type SignedBody struct {
	Addr                string          `json:"addr"`
	ServiceUID          string          `json:"serviceUid"`
	HexTime             string          `json:"hexTime" binding:"required,hexadecimal"`
	CompositeSignatures json.RawMessage `json:"compositeSignatures"`
	Voucher             json.RawMessage `json:"voucher"`
}

type createProposalBody struct {
	remote.ProposalPayload
	SignedBody
}

type updateCommunityBody struct {
	remote.CommunityUpdate
	SignedBody
}

type MutationController struct {
	mutations MutationService
	session   repository.SessionReader
	validate  *validator.Validate
}

func NewMutationController(mutations MutationService, session repository.SessionReader) *MutationController {
	return &MutationController{mutations: mutations, session: session, validate: validator.New()}
}

// Join handles POST /communities/:id/members.
func (mc *MutationController) Join(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body SignedBody
	if !bindJSON(c, &body) {
		return
	}
	call, ok := mc.call(c, body)
	if !ok {
		return
	}

	user, err := mc.mutations.Join(c.Request.Context(), call, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Leave handles DELETE /communities/:id/members/:addr. Only the signing
// wallet can leave.
func (mc *MutationController) Leave(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body SignedBody
	if !bindJSON(c, &body) {
		return
	}
	call, ok := mc.call(c, body)
	if !ok {
		return
	}
	if !strings.EqualFold(call.Identity.Addr, c.Param("addr")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "members can only remove themselves"})
		return
	}

	if err := mc.mutations.Leave(c.Request.Context(), call, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateProposal handles POST /communities/:id/proposals.
func (mc *MutationController) CreateProposal(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body createProposalBody
	if !bindJSON(c, &body) {
		return
	}
	call, ok := mc.call(c, body.SignedBody)
	if !ok {
		return
	}

	payload := body.ProposalPayload
	payload.CommunityID = id
	if payload.CreatorAddr == "" {
		payload.CreatorAddr = call.Identity.Addr
	}
	if err := mc.validate.Struct(payload); err != nil {
		respondError(c, err)
		return
	}

	p, err := mc.mutations.CreateProposal(c.Request.Context(), call, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.WithComponent("mutation-controller").Debugf("created proposal %d in community %d", p.ID, id)
	c.JSON(http.StatusCreated, p)
}

// UpdateCommunity handles PATCH /communities/:id.
func (mc *MutationController) UpdateCommunity(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body updateCommunityBody
	if !bindJSON(c, &body) {
		return
	}
	call, ok := mc.call(c, body.SignedBody)
	if !ok {
		return
	}
	if err := mc.validate.Struct(body.CommunityUpdate); err != nil {
		respondError(c, err)
		return
	}

	community, err := mc.mutations.UpdateCommunity(c.Request.Context(), call, id, body.CommunityUpdate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

// call builds the mutation call from the wallet reply. The identity is the
// body's address when given, otherwise the connected session.
func (mc *MutationController) call(c *gin.Context, body SignedBody) (mutation.Call, bool) {
	identity := signer.Identity{Addr: body.Addr, ServiceUID: body.ServiceUID}
	if identity.Addr == "" {
		s, err := mc.session.Current()
		if err != nil {
			respondError(c, err)
			return mutation.Call{}, false
		}
		identity = s.Identity()
	}
	return mutation.Call{
		Identity: identity,
		Signer:   signer.WalletResponse(body.CompositeSignatures, body.Voucher),
		Nonce:    body.HexTime,
	}, true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
