package controller

import (
	"errors"
	"net/http"

	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
)

// SessionStore reads and replaces the connected wallet.
type SessionStore interface {
	repository.SessionReader
	Save(s repository.Session) error
}

type SessionController struct {
	store    SessionStore
	onChange repository.ChangeFunc
}

// NewSessionController builds the session endpoints. onChange runs after a
// save that switched to another wallet and may be nil.
func NewSessionController(store SessionStore, onChange repository.ChangeFunc) *SessionController {
	return &SessionController{store: store, onChange: onChange}
}

type connectRequest struct {
	Addr       string `json:"addr" binding:"required"`
	ServiceUID string `json:"serviceUid" binding:"required"`
}

// Get handles GET /session.
func (sc *SessionController) Get(c *gin.Context) {
	s, err := sc.store.Current()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Connect handles PUT /session.
func (sc *SessionController) Connect(c *gin.Context) {
	var req connectRequest
	if !bindJSON(c, &req) {
		return
	}
	sc.replace(c, repository.Session{Addr: req.Addr, ServiceUID: req.ServiceUID})
}

// Disconnect handles DELETE /session.
func (sc *SessionController) Disconnect(c *gin.Context) {
	sc.replace(c, repository.Session{})
}

func (sc *SessionController) replace(c *gin.Context, next repository.Session) {
	prev, err := sc.store.Current()
	if err != nil && !errors.Is(err, repository.ErrNoSession) {
		respondError(c, err)
		return
	}
	if err := sc.store.Save(next); err != nil {
		respondError(c, err)
		return
	}
	if sc.onChange != nil && !repository.SameUser(prev, next) {
		sc.onChange(prev, next)
	}
	if !next.LoggedIn() {
		c.Status(http.StatusNoContent)
		return
	}
	saved, err := sc.store.Current()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
