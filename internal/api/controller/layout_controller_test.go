package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bassista/go_cast/internal/layout"
	"github.com/gin-gonic/gin"
)

func postSticky(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/layout/sticky", NewLayoutController().Sticky)
	req := httptest.NewRequest(http.MethodPost, "/layout/sticky", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLayoutController_Pins(t *testing.T) {
	w := postSticky(t, `{"state":{},"input":{"scrollY":300,"windowHeight":900,"windowWidth":1280,"navbarHeight":64,"panel":{"top":60,"height":400},"parentWidth":320}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var got layout.State
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	want := layout.State{Pinned: true, PointStatic: 300, Width: 320, Top: 64, WindowWidth: 1280}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestLayoutController_Unpins(t *testing.T) {
	w := postSticky(t, `{"state":{"pinned":true,"pointStatic":300,"width":320,"top":64,"windowWidth":1280},"input":{"scrollY":100,"windowHeight":900,"windowWidth":1280,"navbarHeight":64,"panel":{"top":64,"height":400},"parentWidth":320}}`)

	var got layout.State
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Pinned {
		t.Errorf("expected panel to unpin, got %+v", got)
	}
}

func TestLayoutController_RejectsNegativeMeasurements(t *testing.T) {
	w := postSticky(t, `{"input":{"scrollY":-1,"windowHeight":900}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
