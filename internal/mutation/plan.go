package mutation

import (
	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/query"
	"github.com/bassista/go_cast/internal/remote"
)

// Kind names a write operation.
type Kind string

const (
	KindJoinCommunity   Kind = "join-community"
	KindLeaveCommunity  Kind = "leave-community"
	KindCreateProposal  Kind = "create-proposal"
	KindUpdateCommunity Kind = "update-community"
)

type record struct {
	key  cache.QueryKey
	item cache.Item
}

// patch rewrites one item in every held list of a resource.
type patch struct {
	resource string
	id       string
	fn       func(cache.Item) cache.Item
}

// plan is the cache side effect of a successful mutation.
type plan struct {
	set        []record
	patch      []patch
	invalidate []cache.QueryKey
}

func (p plan) apply(w cache.Writer) {
	for _, r := range p.set {
		w.SetData(r.key, r.item)
	}
	if len(p.patch) > 0 {
		keys := w.Keys()
		for _, pt := range p.patch {
			for _, k := range keys {
				if k.Resource() == pt.resource {
					w.PatchItem(k, pt.id, pt.fn)
				}
			}
		}
	}
	for _, k := range p.invalidate {
		w.Invalidate(k)
	}
}

func membershipPlan(addr string) plan {
	return plan{invalidate: []cache.QueryKey{query.HomepageKey(), query.UserCommunitiesKey(addr)}}
}

func createProposalPlan(p remote.Proposal) plan {
	return plan{set: []record{{key: query.ProposalKey(p.ID), item: p}}}
}

// updateCommunityPlan stores the edited community and rewrites it inside the
// membership lists already held, keeping each wallet's membership flags.
func updateCommunityPlan(c remote.Community) plan {
	return plan{
		set: []record{{key: query.CommunityKey(c.ID), item: c}},
		patch: []patch{{
			resource: query.ResourceUserCommunities,
			id:       c.ItemID(),
			fn:       replaceCommunity(c),
		}},
		invalidate: []cache.QueryKey{query.HomepageKey()},
	}
}

func replaceCommunity(c remote.Community) func(cache.Item) cache.Item {
	return func(it cache.Item) cache.Item {
		switch held := it.(type) {
		case remote.UserCommunity:
			held.Community = c
			return held
		case remote.Community:
			return c
		default:
			return it
		}
	}
}
