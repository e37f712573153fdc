package controller

import (
	"net/http"

	"github.com/bassista/go_cast/internal/layout"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type LayoutController struct {
	validate *validator.Validate
}

func NewLayoutController() *LayoutController {
	return &LayoutController{validate: validator.New()}
}

type stickyRequest struct {
	State layout.State `json:"state"`
	Input layout.Input `json:"input"`
}

// Sticky handles POST /layout/sticky: the client posts its last panel state
// with the new measurements and gets the next state back.
func (lc *LayoutController) Sticky(c *gin.Context) {
	var req stickyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := lc.validate.Struct(req.Input); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, layout.Decide(req.State, req.Input))
}
