package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRequestTimeout_Disabled(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		r := gin.New()
		r.Use(RequestTimeout(d))
		var hasDeadline bool
		r.GET("/test", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if w.Code != http.StatusOK {
			t.Errorf("timeout %s: expected status 200, got %d", d, w.Code)
		}
		if hasDeadline {
			t.Errorf("timeout %s: expected no deadline", d)
		}
	}
}

func TestRequestTimeout_ContextHasDeadline(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(5 * time.Second))

	var hasDeadline bool
	r.GET("/test", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if !hasDeadline {
		t.Error("expected context to have deadline")
	}
}

func TestRequestTimeout_TimeoutTriggered(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestTimeout(50*time.Millisecond))
	r.GET("/communities/homepage", func(c *gin.Context) {
		select {
		case <-time.After(500 * time.Millisecond):
			c.String(http.StatusOK, "ok")
		case <-c.Request.Context().Done():
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/communities/homepage", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected status 504, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["requestId"] != w.Header().Get(RequestIDHeader) {
		t.Errorf("expected request id %q in body, got %q", w.Header().Get(RequestIDHeader), body["requestId"])
	}
}

func TestRequestTimeout_HandlerWritesBeforeTimeout(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(50 * time.Millisecond))
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
		time.Sleep(100 * time.Millisecond)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 (already written), got %d", w.Code)
	}
}
