package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bassista/go_cast/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionChange struct {
	prev, next repository.Session
}

func newSessionEngine(t *testing.T) (*gin.Engine, repository.Repository, *[]sessionChange) {
	t.Helper()
	repo, err := repository.NewJSONRepository(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	changes := &[]sessionChange{}
	sc := NewSessionController(repo, func(prev, next repository.Session) {
		*changes = append(*changes, sessionChange{prev: prev, next: next})
	})
	r := gin.New()
	r.GET("/session", sc.Get)
	r.PUT("/session", sc.Connect)
	r.DELETE("/session", sc.Disconnect)
	return r, repo, changes
}

func sendSession(r *gin.Engine, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/session", bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionController_ConnectSavesAndReportsUserChange(t *testing.T) {
	r, repo, changes := newSessionEngine(t)

	w := sendSession(r, http.MethodGet, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = sendSession(r, http.MethodPut, `{"addr":"0x01cf0e2f2f715450","serviceUid":"uid-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved repository.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, "0x01cf0e2f2f715450", saved.Addr)
	assert.NotZero(t, saved.UpdatedAt)

	onDisk, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, onDisk)

	// same wallet, other spelling: no user change
	w = sendSession(r, http.MethodPut, `{"addr":"0x01CF0E2F2F715450","serviceUid":"uid-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = sendSession(r, http.MethodPut, `{"addr":"0x0a","serviceUid":"uid-2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, *changes, 2)
	assert.False(t, (*changes)[0].prev.LoggedIn())
	assert.Equal(t, "0x01CF0E2F2F715450", (*changes)[1].prev.Addr)
	assert.Equal(t, "0x0a", (*changes)[1].next.Addr)
}

func TestSessionController_Disconnect(t *testing.T) {
	r, _, changes := newSessionEngine(t)
	require.Equal(t, http.StatusOK, sendSession(r, http.MethodPut, `{"addr":"0x0a","serviceUid":"uid"}`).Code)

	w := sendSession(r, http.MethodDelete, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusUnauthorized, sendSession(r, http.MethodGet, "").Code)
	require.Len(t, *changes, 2)
	assert.Equal(t, "0x0a", (*changes)[1].prev.Addr)

	// already logged out
	sendSession(r, http.MethodDelete, "")
	assert.Len(t, *changes, 2)
}

func TestSessionController_RejectsInvalidSession(t *testing.T) {
	r, _, changes := newSessionEngine(t)
	for _, body := range []string{`{"addr":"0x0a"}`, `{"addr":"wallet","serviceUid":"uid"}`, `not json`} {
		w := sendSession(r, http.MethodPut, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, *changes)
}
