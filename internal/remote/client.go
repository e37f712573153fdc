// Package remote is the HTTP client of the governance API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_cast/internal/logger"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/go-playground/validator/v10"
)

// Client calls the governance API. Calls are never retried: a failed write
// must be re-submitted with a fresh signature.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		validate: validator.New(),
	}
}

// CommunitiesForHomepage lists featured communities.
func (c *Client) CommunitiesForHomepage(ctx context.Context, cursor pagination.Cursor) (pagination.Page[Community], error) {
	var page pagination.Page[Community]
	err := c.get(ctx, "/communities-for-homepage", pageQuery(cursor), &page)
	return page, err
}

// UserCommunities lists the communities addr holds a role in.
func (c *Client) UserCommunities(ctx context.Context, addr string, cursor pagination.Cursor) (pagination.Page[UserCommunity], error) {
	var page pagination.Page[UserCommunity]
	err := c.get(ctx, "/users/"+url.PathEscape(addr)+"/communities", pageQuery(cursor), &page)
	return page, err
}

// CommunityProposals lists the proposals of a community, optionally filtered by status.
func (c *Client) CommunityProposals(ctx context.Context, communityID int, status ProposalStatus, cursor pagination.Cursor) (pagination.Page[Proposal], error) {
	q := pageQuery(cursor)
	if status != StatusAll {
		q.Set("status", string(status))
	}
	var page pagination.Page[Proposal]
	err := c.get(ctx, "/communities/"+strconv.Itoa(communityID)+"/proposals", q, &page)
	return page, err
}

// Proposal fetches one proposal.
func (c *Client) Proposal(ctx context.Context, id int) (Proposal, error) {
	var p Proposal
	err := c.get(ctx, "/proposals/"+strconv.Itoa(id), nil, &p)
	return p, err
}

// Community fetches one community.
func (c *Client) Community(ctx context.Context, id int) (Community, error) {
	var cm Community
	err := c.get(ctx, "/communities/"+strconv.Itoa(id), nil, &cm)
	return cm, err
}

// AddCommunityUser grants addr a role in a community.
func (c *Client) AddCommunityUser(ctx context.Context, req MembershipRequest) (CommunityUser, error) {
	var out CommunityUser
	if err := c.validate.Struct(req); err != nil {
		return out, fmt.Errorf("invalid membership request: %w", err)
	}
	err := c.send(ctx, http.MethodPost, "/communities/"+strconv.Itoa(req.CommunityID)+"/users", req, &out)
	return out, err
}

// DeleteCommunityMember removes every role addr holds in a community.
func (c *Client) DeleteCommunityMember(ctx context.Context, req MembershipRequest) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid membership request: %w", err)
	}
	path := "/communities/" + strconv.Itoa(req.CommunityID) + "/users/" + url.PathEscape(req.Addr) + "/member"
	return c.send(ctx, http.MethodDelete, path, req, nil)
}

// CreateProposal submits a new proposal.
func (c *Client) CreateProposal(ctx context.Context, req CreateProposalRequest) (Proposal, error) {
	var out Proposal
	if err := c.validate.Struct(req); err != nil {
		return out, fmt.Errorf("invalid proposal: %w", err)
	}
	err := c.send(ctx, http.MethodPost, "/communities/"+strconv.Itoa(req.CommunityID)+"/proposals", req, &out)
	return out, err
}

// UpdateCommunity edits a community profile.
func (c *Client) UpdateCommunity(ctx context.Context, communityID int, req UpdateCommunityRequest) (Community, error) {
	var out Community
	if err := c.validate.Struct(req); err != nil {
		return out, fmt.Errorf("invalid community update: %w", err)
	}
	err := c.send(ctx, http.MethodPatch, "/communities/"+strconv.Itoa(communityID), req, &out)
	return out, err
}

func pageQuery(cursor pagination.Cursor) url.Values {
	q := url.Values{}
	q.Set("start", strconv.Itoa(cursor.Start))
	q.Set("count", strconv.Itoa(cursor.Count))
	return q
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	log := logger.WithComponent("remote-api")
	log.Debugf("%s %s", req.Method, req.URL.Redacted())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		log.Debugf("%s %s: %v", req.Method, req.URL.Redacted(), err)
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// checkResponse turns a non-2xx response into a NetworkError. An "error"
// field in the JSON body replaces the status text.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusText := http.StatusText(resp.StatusCode)
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		statusText = body.Error
	}
	return &NetworkError{Status: resp.StatusCode, StatusText: statusText, URL: resp.Request.URL.String()}
}
