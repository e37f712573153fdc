package query

import (
	"strings"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/remote"
)

// Resource names used as the first Query Key component.
const (
	ResourceHomepageCommunities = "communities-for-homepage"
	ResourceUserCommunities     = "connected-user-communities"
	ResourceCommunityProposals  = "community-proposals"
	ResourceProposal            = "proposal"
	ResourceCommunity           = "community"
)

func HomepageKey() cache.QueryKey {
	return cache.Key(ResourceHomepageCommunities)
}

// UserCommunitiesKey scopes memberships by wallet. Addresses are case-folded
// so every spelling of the same wallet shares one entry.
func UserCommunitiesKey(addr string) cache.QueryKey {
	return cache.Key(ResourceUserCommunities, strings.ToLower(addr))
}

// CommunityProposalsKey scopes proposals by community and status filter.
func CommunityProposalsKey(communityID int, status remote.ProposalStatus) cache.QueryKey {
	return cache.Key(ResourceCommunityProposals, communityID, string(status))
}

func ProposalKey(id int) cache.QueryKey {
	return cache.Key(ResourceProposal, id)
}

func CommunityKey(id int) cache.QueryKey {
	return cache.Key(ResourceCommunity, id)
}
