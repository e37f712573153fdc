package route

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bassista/go_cast/internal/app"
	"github.com/bassista/go_cast/internal/config"
	"github.com/bassista/go_cast/internal/notify"
	"github.com/bassista/go_cast/internal/pagination"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRepository struct {
	session repository.Session
}

func (s *stubRepository) Current() (repository.Session, error) {
	if !s.session.LoggedIn() {
		return repository.Session{}, repository.ErrNoSession
	}
	return s.session, nil
}

func (s *stubRepository) Load() (repository.Session, error) { return s.session, nil }
func (s *stubRepository) Save(next repository.Session) error {
	s.session = next
	return nil
}
func (s *stubRepository) StartWatcher(context.Context, repository.ChangeFunc) error {
	return nil
}

// stubAPI serves two pages of homepage communities.
type stubAPI struct {
	homepageCalls int
}

func (s *stubAPI) CommunitiesForHomepage(_ context.Context, cur pagination.Cursor) (pagination.Page[remote.Community], error) {
	s.homepageCalls++
	if cur.Start == 0 {
		return pagination.Page[remote.Community]{Data: []remote.Community{{ID: 1}, {ID: 2}}, Start: 0, Count: 2, TotalRecords: 3, Next: 2}, nil
	}
	return pagination.Page[remote.Community]{Data: []remote.Community{{ID: 3}}, Start: 2, Count: 2, TotalRecords: 3, Next: -1}, nil
}

func (s *stubAPI) UserCommunities(context.Context, string, pagination.Cursor) (pagination.Page[remote.UserCommunity], error) {
	return pagination.Page[remote.UserCommunity]{Next: -1}, nil
}

func (s *stubAPI) CommunityProposals(context.Context, int, remote.ProposalStatus, pagination.Cursor) (pagination.Page[remote.Proposal], error) {
	return pagination.Page[remote.Proposal]{Next: -1}, nil
}

func (s *stubAPI) Proposal(_ context.Context, id int) (remote.Proposal, error) {
	return remote.Proposal{ID: id}, nil
}

func (s *stubAPI) Community(_ context.Context, id int) (remote.Community, error) {
	return remote.Community{ID: id}, nil
}

func (s *stubAPI) AddCommunityUser(_ context.Context, req remote.MembershipRequest) (remote.CommunityUser, error) {
	return remote.CommunityUser{CommunityID: req.CommunityID, Addr: req.Addr, UserType: "member"}, nil
}

func (s *stubAPI) DeleteCommunityMember(context.Context, remote.MembershipRequest) error { return nil }

func (s *stubAPI) CreateProposal(context.Context, remote.CreateProposalRequest) (remote.Proposal, error) {
	return remote.Proposal{}, nil
}

func (s *stubAPI) UpdateCommunity(_ context.Context, id int, _ remote.UpdateCommunityRequest) (remote.Community, error) {
	return remote.Community{ID: id}, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *stubAPI) {
	t.Helper()
	api := &stubAPI{}
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Second},
		API:    config.APIConfig{PageSize: 2},
	}
	appCtx, err := app.New(cfg, &stubRepository{session: repository.Session{Addr: "0xabc", ServiceUID: "uid"}}, api, notify.NewSink())
	require.NoError(t, err)
	t.Cleanup(appCtx.Shutdown)

	r := gin.New()
	SetupRoutes(r, appCtx)
	return r, api
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	r, _ := newTestEngine(t)
	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"UP"}`, w.Body.String())
}

func TestSetupRoutes_Metrics(t *testing.T) {
	r, _ := newTestEngine(t)
	serve(r, http.MethodGet, "/communities/homepage", "")

	w := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gocast_cache_lookups_total")
}

func TestSetupRoutes_HomepagePagination(t *testing.T) {
	r, api := newTestEngine(t)

	var view struct {
		Data       []remote.Community `json:"data"`
		Pagination pagination.Summary `json:"pagination"`
	}

	w := serve(r, http.MethodGet, "/communities/homepage", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Data, 2)
	assert.Equal(t, 2, view.Pagination.Next)

	// cached: no new fetch
	serve(r, http.MethodGet, "/communities/homepage", "")
	assert.Equal(t, 1, api.homepageCalls)

	w = serve(r, http.MethodGet, "/communities/homepage?more=true", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Data, 3)
	assert.Equal(t, -1, view.Pagination.Next)

	// exhausted: more does not call the API again
	serve(r, http.MethodGet, "/communities/homepage?more=true", "")
	assert.Equal(t, 2, api.homepageCalls)

	w = serve(r, http.MethodPost, "/cache/invalidate", `{"key":["communities-for-homepage"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	serve(r, http.MethodGet, "/communities/homepage", "")
	assert.Equal(t, 3, api.homepageCalls)
}

func TestSetupRoutes_JoinUsesSession(t *testing.T) {
	r, _ := newTestEngine(t)
	w := serve(r, http.MethodPost, "/communities/4/members",
		`{"hexTime":"31373030303030303030303030","compositeSignatures":[{"addr":"0xabc","keyId":0,"signature":"aa"}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"addr":"0xabc"`)
}

func TestSetupRoutes_SessionSwitchChangesMutationIdentity(t *testing.T) {
	r, _ := newTestEngine(t)

	w := serve(r, http.MethodPut, "/session", `{"addr":"0xdef","serviceUid":"uid-2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodPost, "/communities/4/members",
		`{"hexTime":"31373030303030303030303030","compositeSignatures":[{"addr":"0xdef","keyId":0,"signature":"aa"}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"addr":"0xdef"`)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/session", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/session", "").Code)
}

func TestSetupRoutes_Layout(t *testing.T) {
	r, _ := newTestEngine(t)
	w := serve(r, http.MethodPost, "/layout/sticky", `{"input":{"windowHeight":800}}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
