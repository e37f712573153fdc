package remote

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/bassista/go_cast/internal/signer"
)

// Community is a governance community.
type Community struct {
	ID                  int             `json:"id"`
	Name                string          `json:"name"`
	Category            string          `json:"category,omitempty"`
	Body                string          `json:"body,omitempty"`
	Logo                string          `json:"logo,omitempty"`
	BannerImgURL        string          `json:"bannerImgUrl,omitempty"`
	Slug                string          `json:"slug,omitempty"`
	CreatorAddr         string          `json:"creatorAddr,omitempty"`
	IsFeatured          bool            `json:"isFeatured,omitempty"`
	MembersCount        int             `json:"membersCount,omitempty"`
	ProposalValidation  string          `json:"proposalValidation,omitempty"`
	ProposalThreshold   string          `json:"proposalThreshold,omitempty"`
	OnlyAuthorsToSubmit bool            `json:"onlyAuthorsToSubmit,omitempty"`
	Strategies          json.RawMessage `json:"strategies,omitempty"`
	WebsiteURL          string          `json:"websiteUrl,omitempty"`
	TwitterURL          string          `json:"twitterUrl,omitempty"`
	DiscordURL          string          `json:"discordUrl,omitempty"`
	GithubURL           string          `json:"githubUrl,omitempty"`
	Terms               string          `json:"termsAndConditionsUrl,omitempty"`
	ContractName        string          `json:"contractName,omitempty"`
	ContractAddr        string          `json:"contractAddr,omitempty"`
	PublicPath          string          `json:"publicPath,omitempty"`
	CreatedAt           *time.Time      `json:"createdAt,omitempty"`
}

func (c Community) ItemID() string { return strconv.Itoa(c.ID) }

// UserCommunity is a community the user holds a role in.
type UserCommunity struct {
	Community
	Addr       string `json:"addr,omitempty"`
	MemberType string `json:"membershipType,omitempty"`
	IsAdmin    bool   `json:"isAdmin,omitempty"`
	IsAuthor   bool   `json:"isAuthor,omitempty"`
	IsMember   bool   `json:"isMember,omitempty"`
}

// Choice is one voting option of a proposal.
type Choice struct {
	ID           int    `json:"id,omitempty"`
	ChoiceText   string `json:"choiceText" validate:"required"`
	ChoiceImgURL string `json:"choiceImgUrl,omitempty"`
}

// Proposal is a vote submitted to a community.
type Proposal struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	CommunityID    int        `json:"communityId"`
	Choices        []Choice   `json:"choices"`
	Strategy       string     `json:"strategy,omitempty"`
	MaxWeight      *float64   `json:"maxWeight,omitempty"`
	MinBalance     *float64   `json:"minBalance,omitempty"`
	CreatorAddr    string     `json:"creatorAddr"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        time.Time  `json:"endTime"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	Status         string     `json:"status,omitempty"`
	ComputedStatus string     `json:"computedStatus,omitempty"`
	Result         string     `json:"result,omitempty"`
	Body           string     `json:"body,omitempty"`
	Cid            string     `json:"cid,omitempty"`
	TotalVotes     int        `json:"total_votes"`
}

func (p Proposal) ItemID() string { return strconv.Itoa(p.ID) }

// CommunityUser is a role held by an address in a community.
type CommunityUser struct {
	CommunityID int    `json:"communityId"`
	Addr        string `json:"addr"`
	UserType    string `json:"userType"`
}

func (u CommunityUser) ItemID() string { return strconv.Itoa(u.CommunityID) + ":" + u.Addr }

// ProposalStatus filters community proposals.
type ProposalStatus string

const (
	StatusAll        ProposalStatus = ""
	StatusPending    ProposalStatus = "pending"
	StatusActive     ProposalStatus = "active"
	StatusClosed     ProposalStatus = "closed"
	StatusCancelled  ProposalStatus = "cancelled"
	StatusTerminated ProposalStatus = "terminated"
	StatusInProgress ProposalStatus = "inprogress"
)

// ParseProposalStatus accepts one of the known filters or "" for all proposals.
func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch st := ProposalStatus(s); st {
	case StatusAll, StatusPending, StatusActive, StatusClosed, StatusCancelled, StatusTerminated, StatusInProgress:
		return st, true
	}
	return "", false
}

// Signed carries the wallet authorization attached to every write.
type Signed struct {
	SigningAddr         string                      `json:"signingAddr,omitempty"`
	Timestamp           string                      `json:"timestamp" validate:"required,hexadecimal"`
	CompositeSignatures []signer.CompositeSignature `json:"compositeSignatures"`
	Voucher             json.RawMessage             `json:"voucher,omitempty"`
}

// NewSigned builds the authorization envelope for a signed nonce.
func NewSigned(signingAddr, nonceHex string, b signer.Bundle) Signed {
	return Signed{
		SigningAddr:         signingAddr,
		Timestamp:           nonceHex,
		CompositeSignatures: b.CompositeSignatures,
		Voucher:             b.Voucher,
	}
}

// MembershipRequest adds or removes a member.
type MembershipRequest struct {
	CommunityID int    `json:"communityId" validate:"required,gt=0"`
	Addr        string `json:"addr" validate:"required"`
	UserType    string `json:"userType,omitempty"`
	Signed
}

// ProposalPayload is the user-provided part of a new proposal.
type ProposalPayload struct {
	Name        string    `json:"name" validate:"required"`
	CommunityID int       `json:"communityId" validate:"required,gt=0"`
	Choices     []Choice  `json:"choices" validate:"required,min=1,dive"`
	Strategy    string    `json:"strategy,omitempty"`
	MaxWeight   *float64  `json:"maxWeight,omitempty"`
	MinBalance  *float64  `json:"minBalance,omitempty"`
	CreatorAddr string    `json:"creatorAddr" validate:"required"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Body        string    `json:"body" validate:"required"`
}

// CreateProposalRequest is a proposal payload with its authorization.
type CreateProposalRequest struct {
	ProposalPayload
	Signed
}

// CommunityUpdate holds the editable community fields. Nil fields are left unchanged.
type CommunityUpdate struct {
	Name                *string         `json:"name,omitempty" validate:"omitempty,min=1"`
	Category            *string         `json:"category,omitempty"`
	Body                *string         `json:"body,omitempty"`
	Logo                *string         `json:"logo,omitempty"`
	BannerImgURL        *string         `json:"bannerImgUrl,omitempty"`
	WebsiteURL          *string         `json:"websiteUrl,omitempty" validate:"omitempty,url"`
	TwitterURL          *string         `json:"twitterUrl,omitempty" validate:"omitempty,url"`
	DiscordURL          *string         `json:"discordUrl,omitempty" validate:"omitempty,url"`
	GithubURL           *string         `json:"githubUrl,omitempty" validate:"omitempty,url"`
	ProposalValidation  *string         `json:"proposalValidation,omitempty"`
	ProposalThreshold   *string         `json:"proposalThreshold,omitempty"`
	OnlyAuthorsToSubmit *bool           `json:"onlyAuthorsToSubmit,omitempty"`
	Strategies          json.RawMessage `json:"strategies,omitempty"`
}

// UpdateCommunityRequest is a community update with its authorization.
type UpdateCommunityRequest struct {
	CommunityUpdate
	Signed
}
