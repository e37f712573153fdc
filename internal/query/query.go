// Package query exposes typed, paginated views of the governance API backed by the query cache.
package query

import (
	"context"
	"errors"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/bassista/go_cast/internal/remote"
)

// ErrDisabled is returned by record queries called without an identifier.
var ErrDisabled = errors.New("query disabled: missing identifier")

// View is the consumer-facing state of a paginated query.
type View[T any] struct {
	Key        cache.QueryKey       `json:"queryKey"`
	Enabled    bool                 `json:"enabled"`
	Status     cache.Status         `json:"status"`
	Data       []T                  `json:"data"`
	Pagination pagination.Summary   `json:"pagination"`
	Pages      []pagination.Page[T] `json:"pages"`
}

// Service runs typed queries against the cache.
type Service struct {
	store cache.QueryStore
}

func NewService(store cache.QueryStore) *Service {
	return &Service{store: store}
}

// HomepageCommunities returns the featured communities. With more set, the
// next page is fetched first when the list is already cached.
func (s *Service) HomepageCommunities(ctx context.Context, more bool) (View[remote.Community], error) {
	return list[remote.Community](ctx, s.store, HomepageKey(), more)
}

// UserCommunities returns the communities addr belongs to. An empty address disables the query.
func (s *Service) UserCommunities(ctx context.Context, addr string, more bool) (View[remote.UserCommunity], error) {
	key := UserCommunitiesKey(addr)
	if addr == "" {
		return disabled[remote.UserCommunity](key, s.store.PageSize()), nil
	}
	return list[remote.UserCommunity](ctx, s.store, key, more)
}

// CommunityProposals returns the proposals of a community for a status filter.
// A zero community id disables the query.
func (s *Service) CommunityProposals(ctx context.Context, communityID int, status remote.ProposalStatus, more bool) (View[remote.Proposal], error) {
	key := CommunityProposalsKey(communityID, status)
	if communityID <= 0 {
		return disabled[remote.Proposal](key, s.store.PageSize()), nil
	}
	return list[remote.Proposal](ctx, s.store, key, more)
}

// Proposal returns one proposal, from the cache when a record is held.
func (s *Service) Proposal(ctx context.Context, id int) (remote.Proposal, error) {
	return record[remote.Proposal](ctx, s.store, id, ProposalKey)
}

// Community returns one community, from the cache when a record is held.
func (s *Service) Community(ctx context.Context, id int) (remote.Community, error) {
	return record[remote.Community](ctx, s.store, id, CommunityKey)
}

func list[T cache.Item](ctx context.Context, store cache.QueryStore, key cache.QueryKey, more bool) (View[T], error) {
	snap, ok := store.Snapshot(key)
	cached := ok && len(snap.Pages) > 0

	var err error
	switch {
	case !cached:
		snap, err = store.Read(ctx, key)
	case more:
		if _, _, err = store.FetchNext(ctx, key); err == nil {
			snap, _ = store.Snapshot(key)
		}
	}
	if err != nil {
		snap, _ = store.Snapshot(key)
		return toView[T](snap, key, store.PageSize()), err
	}
	return toView[T](snap, key, store.PageSize()), nil
}

func record[T cache.Item](ctx context.Context, store cache.QueryStore, id int, keyFn func(int) cache.QueryKey) (T, error) {
	var zero T
	if id <= 0 {
		return zero, ErrDisabled
	}
	item, err := store.Record(ctx, keyFn(id))
	if err != nil {
		return zero, err
	}
	v, ok := item.(T)
	if !ok {
		return zero, errors.New("cached record has unexpected type")
	}
	return v, nil
}

func disabled[T any](key cache.QueryKey, pageSize int) View[T] {
	return View[T]{
		Key:        key,
		Enabled:    false,
		Status:     cache.StatusIdle,
		Data:       []T{},
		Pagination: pagination.Summarize[T](nil, pageSize),
		Pages:      []pagination.Page[T]{},
	}
}

func toView[T any](snap cache.Snapshot, key cache.QueryKey, pageSize int) View[T] {
	pages := make([]pagination.Page[T], 0, len(snap.Pages))
	for _, p := range snap.Pages {
		pages = append(pages, pagination.Page[T]{
			Data:         typed[T](p.Data),
			Start:        p.Start,
			Count:        p.Count,
			TotalRecords: p.TotalRecords,
			Next:         p.Next,
		})
	}
	return View[T]{
		Key:        key,
		Enabled:    true,
		Status:     snap.Status,
		Data:       pagination.Flatten(pages),
		Pagination: pagination.Summarize(pages, pageSize),
		Pages:      pages,
	}
}

func typed[T any](items []cache.Item) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if v, ok := it.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
