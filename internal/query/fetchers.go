package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/bassista/go_cast/internal/remote"
)

// API is the part of the governance API the queries read from.
type API interface {
	CommunitiesForHomepage(ctx context.Context, cursor pagination.Cursor) (pagination.Page[remote.Community], error)
	UserCommunities(ctx context.Context, addr string, cursor pagination.Cursor) (pagination.Page[remote.UserCommunity], error)
	CommunityProposals(ctx context.Context, communityID int, status remote.ProposalStatus, cursor pagination.Cursor) (pagination.Page[remote.Proposal], error)
	Proposal(ctx context.Context, id int) (remote.Proposal, error)
	Community(ctx context.Context, id int) (remote.Community, error)
}

// Registrar is the part of the cache that accepts fetchers.
type Registrar interface {
	Register(resource string, fetch cache.Fetcher)
	RegisterRecord(resource string, fetch cache.RecordFetcher)
	Derive(resource string, prefixes ...cache.QueryKey)
}

// RegisterFetchers binds every query resource to its API call.
func RegisterFetchers(r Registrar, api API) {
	r.Register(ResourceHomepageCommunities, func(ctx context.Context, _ cache.QueryKey, c pagination.Cursor) (cache.Page, error) {
		page, err := api.CommunitiesForHomepage(ctx, c)
		return toCachePage(page), err
	})
	r.Register(ResourceUserCommunities, func(ctx context.Context, k cache.QueryKey, c pagination.Cursor) (cache.Page, error) {
		page, err := api.UserCommunities(ctx, k.Param(0), c)
		return toCachePage(page), err
	})
	r.Register(ResourceCommunityProposals, func(ctx context.Context, k cache.QueryKey, c pagination.Cursor) (cache.Page, error) {
		id, err := intParam(k, 0)
		if err != nil {
			return cache.Page{}, err
		}
		page, err := api.CommunityProposals(ctx, id, remote.ProposalStatus(k.Param(1)), c)
		return toCachePage(page), err
	})
	r.RegisterRecord(ResourceProposal, func(ctx context.Context, k cache.QueryKey) (cache.Item, error) {
		id, err := intParam(k, 0)
		if err != nil {
			return nil, err
		}
		return api.Proposal(ctx, id)
	})
	r.RegisterRecord(ResourceCommunity, func(ctx context.Context, k cache.QueryKey) (cache.Item, error) {
		id, err := intParam(k, 0)
		if err != nil {
			return nil, err
		}
		return api.Community(ctx, id)
	})

	// membership lists feed the member counts shown on the homepage
	r.Derive(ResourceUserCommunities, HomepageKey())
}

func toCachePage[T cache.Item](p pagination.Page[T]) cache.Page {
	return pagination.Map(p, func(item T) cache.Item { return item })
}

func intParam(k cache.QueryKey, i int) (int, error) {
	id, err := strconv.Atoi(k.Param(i))
	if err != nil {
		return 0, fmt.Errorf("query key %s: invalid id: %w", k, err)
	}
	return id, nil
}
