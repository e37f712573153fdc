package repository

import (
	"errors"
	"strings"

	"github.com/bassista/go_cast/internal/signer"
)

// ErrNoSession is returned when no wallet is connected.
var ErrNoSession = errors.New("no wallet connected")

// Session is the connected wallet, as written by the browser connector.
// An empty document means logged out.
type Session struct {
	Addr       string `json:"addr,omitempty" validate:"omitempty,startswith=0x,hexadecimal"`
	ServiceUID string `json:"serviceUid,omitempty" validate:"required_with=Addr"`
	UpdatedAt  int64  `json:"updatedAt,omitempty"` // Unix timestamp in milliseconds
}

// LoggedIn reports whether a wallet address is set.
func (s Session) LoggedIn() bool {
	return s.Addr != ""
}

// Identity returns the signer identity of the session.
func (s Session) Identity() signer.Identity {
	return signer.Identity{Addr: s.Addr, ServiceUID: s.ServiceUID}
}

// SameUser compares sessions by wallet address, case-insensitively.
func SameUser(a, b Session) bool {
	return strings.EqualFold(a.Addr, b.Addr)
}
