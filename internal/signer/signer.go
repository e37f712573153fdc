// Package signer models the wallet capability that authorizes write operations.
package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrInvalidSignature is returned when the signer produced neither composite signatures nor a voucher.
	ErrInvalidSignature = errors.New("no valid user signature found")
	// ErrDeclined is returned when the user refused to sign.
	ErrDeclined = errors.New("signature declined by user")
)

// TransactionKind names the message template the wallet signs.
type TransactionKind string

const (
	UpdateMembershipTx TransactionKind = "UPDATE_MEMBERSHIP_TX"
	CreateProposalTx   TransactionKind = "CREATE_PROPOSAL_TX"
	UpdateCommunityTx  TransactionKind = "UPDATE_COMMUNITY_TX"
)

// Identity is the connected wallet user.
type Identity struct {
	Addr       string `json:"addr" validate:"required"`
	ServiceUID string `json:"serviceUid"`
}

// CompositeSignature is one account key signature over the signed message.
type CompositeSignature struct {
	Addr      string `json:"addr"`
	KeyID     int    `json:"keyId"`
	Signature string `json:"signature"`
}

// Bundle is what the wallet returns for a signing request. The voucher is
// forwarded to the API as-is.
type Bundle struct {
	CompositeSignatures []CompositeSignature `json:"compositeSignatures,omitempty"`
	Voucher             json.RawMessage      `json:"voucher,omitempty"`
}

// Empty reports whether the bundle carries neither signatures nor a voucher.
func (b Bundle) Empty() bool {
	return len(b.CompositeSignatures) == 0 && !hasVoucher(b.Voucher)
}

func hasVoucher(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", "{}":
		return false
	}
	return true
}

// Signer asks the wallet of identity to sign a transaction of the given kind
// bound to nonceHex. Implementations may block for as long as the user takes.
type Signer interface {
	Sign(ctx context.Context, identity Identity, kind TransactionKind, nonceHex string) (Bundle, error)
}

// Func adapts a function to the Signer interface.
type Func func(ctx context.Context, identity Identity, kind TransactionKind, nonceHex string) (Bundle, error)

func (f Func) Sign(ctx context.Context, identity Identity, kind TransactionKind, nonceHex string) (Bundle, error) {
	return f(ctx, identity, kind, nonceHex)
}

// Presigned returns a bundle signed ahead of time, for callers that sign in the browser.
type Presigned struct {
	Bundle Bundle
}

func (p Presigned) Sign(context.Context, Identity, TransactionKind, string) (Bundle, error) {
	return p.Bundle, nil
}

// TimestampHex returns the nonce the wallet signs: the hex encoding of the
// decimal millisecond timestamp, e.g. "1700000000000" -> "31373030...".
func TimestampHex(t time.Time) string {
	return hex.EncodeToString([]byte(strconv.FormatInt(t.UnixMilli(), 10)))
}

// ParseTimestampHex reverses TimestampHex.
func ParseTimestampHex(nonce string) (time.Time, error) {
	raw, err := hex.DecodeString(nonce)
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
