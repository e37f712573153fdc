// Package mutation runs signed write operations against the governance API
// and applies their cache side effects.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/metrics"
	"github.com/bassista/go_cast/internal/notify"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/signer"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrNoSigner is returned for a call without a signer.
var ErrNoSigner = errors.New("no signer configured")

// API is the part of the governance API the mutations write to.
type API interface {
	AddCommunityUser(ctx context.Context, req remote.MembershipRequest) (remote.CommunityUser, error)
	DeleteCommunityMember(ctx context.Context, req remote.MembershipRequest) error
	CreateProposal(ctx context.Context, req remote.CreateProposalRequest) (remote.Proposal, error)
	UpdateCommunity(ctx context.Context, communityID int, req remote.UpdateCommunityRequest) (remote.Community, error)
}

// Call carries who signs a mutation. Nonce is the signed hex timestamp when the
// bundle was produced ahead of time; when empty the current time is used.
type Call struct {
	Identity signer.Identity
	Signer   signer.Signer
	Nonce    string
}

// Coordinator executes mutations one step after the other: sign, submit,
// apply the cache plan. A failed step stops the sequence, leaves the cache
// untouched and reports the error once. Nothing is retried.
type Coordinator struct {
	api      API
	cache    cache.Writer
	notifier notify.Notifier
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source used for nonces.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(api API, w cache.Writer, n notify.Notifier, opts ...Option) *Coordinator {
	if n == nil {
		n = notify.Discard
	}
	c := &Coordinator{
		api:      api,
		cache:    w,
		notifier: n,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Join adds the caller as a member of a community.
func (c *Coordinator) Join(ctx context.Context, call Call, communityID int) (remote.CommunityUser, error) {
	addr := call.Identity.Addr
	return run(ctx, c, KindJoinCommunity, call, signer.UpdateMembershipTx,
		func(ctx context.Context, s remote.Signed) (remote.CommunityUser, error) {
			return c.api.AddCommunityUser(ctx, remote.MembershipRequest{CommunityID: communityID, Addr: addr, UserType: "member", Signed: s})
		},
		func(remote.CommunityUser) plan { return membershipPlan(addr) })
}

// Leave removes every role the caller holds in a community.
func (c *Coordinator) Leave(ctx context.Context, call Call, communityID int) error {
	addr := call.Identity.Addr
	_, err := run(ctx, c, KindLeaveCommunity, call, signer.UpdateMembershipTx,
		func(ctx context.Context, s remote.Signed) (struct{}, error) {
			return struct{}{}, c.api.DeleteCommunityMember(ctx, remote.MembershipRequest{CommunityID: communityID, Addr: addr, Signed: s})
		},
		func(struct{}) plan { return membershipPlan(addr) })
	return err
}

// CreateProposal submits a proposal and caches the created record under its id.
func (c *Coordinator) CreateProposal(ctx context.Context, call Call, payload remote.ProposalPayload) (remote.Proposal, error) {
	return run(ctx, c, KindCreateProposal, call, signer.CreateProposalTx,
		func(ctx context.Context, s remote.Signed) (remote.Proposal, error) {
			return c.api.CreateProposal(ctx, remote.CreateProposalRequest{ProposalPayload: payload, Signed: s})
		},
		createProposalPlan)
}

// UpdateCommunity edits a community profile and refreshes its cached record.
func (c *Coordinator) UpdateCommunity(ctx context.Context, call Call, communityID int, update remote.CommunityUpdate) (remote.Community, error) {
	return run(ctx, c, KindUpdateCommunity, call, signer.UpdateCommunityTx,
		func(ctx context.Context, s remote.Signed) (remote.Community, error) {
			return c.api.UpdateCommunity(ctx, communityID, remote.UpdateCommunityRequest{CommunityUpdate: update, Signed: s})
		},
		updateCommunityPlan)
}

func run[T any](
	ctx context.Context,
	c *Coordinator,
	kind Kind,
	call Call,
	tx signer.TransactionKind,
	submit func(context.Context, remote.Signed) (T, error),
	planFor func(T) plan,
) (T, error) {
	log := logger.WithComponent("mutation").WithField("mutation", string(kind)).WithField("mutation_id", uuid.NewString())

	result, err := execute(ctx, c, call, tx, submit)
	metrics.RecordMutation(string(kind), err)
	if err != nil {
		err = fmt.Errorf("%s: %w", kind, err)
		log.Warnf("mutation failed: %v", err)
		c.notifier.Notify(err)
		var zero T
		return zero, err
	}

	planFor(result).apply(c.cache)
	log.Debug("mutation applied")
	return result, nil
}

func execute[T any](ctx context.Context, c *Coordinator, call Call, tx signer.TransactionKind, submit func(context.Context, remote.Signed) (T, error)) (T, error) {
	var zero T
	if call.Signer == nil {
		return zero, ErrNoSigner
	}
	if err := c.validate.Struct(call.Identity); err != nil {
		return zero, fmt.Errorf("invalid identity: %w", err)
	}

	nonce := call.Nonce
	if nonce == "" {
		nonce = signer.TimestampHex(c.now())
	}

	bundle, err := call.Signer.Sign(ctx, call.Identity, tx, nonce)
	if err != nil {
		if errors.Is(err, signer.ErrDeclined) {
			return zero, fmt.Errorf("%w: %w", signer.ErrInvalidSignature, err)
		}
		return zero, fmt.Errorf("sign %s: %w", tx, err)
	}
	if bundle.Empty() {
		return zero, signer.ErrInvalidSignature
	}

	// once signed, the write completes even if the caller goes away
	return submit(context.WithoutCancel(ctx), remote.NewSigned(call.Identity.Addr, nonce, bundle))
}
