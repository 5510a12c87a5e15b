package router

import (
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"FareWatch/internal/middleware"
)

func newTestServer(t *testing.T) *server.Hertz {
	t.Helper()
	if err := middleware.Init(); err != nil {
		t.Fatalf("middleware.Init() error = %v", err)
	}
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	Register(h)
	return h
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/healthz", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode())
	}
	if !strings.Contains(string(resp.Body()), `"ok"`) {
		t.Fatalf("body = %s", resp.Body())
	}
}

func TestV1RequiresUserID(t *testing.T) {
	h := newTestServer(t)

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/v1/alerts", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode())
	}
	if !strings.Contains(string(resp.Body()), "UNAUTHORIZED") {
		t.Fatalf("body = %s", resp.Body())
	}
}

func TestAirportSearchRejectsShortKeyword(t *testing.T) {
	h := newTestServer(t)

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/v1/airports/search?keyword=a", nil,
		ut.Header{Key: middleware.UserIDHeader, Value: "user-1"},
	)
	resp := w.Result()
	if resp.StatusCode() != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode())
	}
}

func TestAirportSearchWithoutProvider(t *testing.T) {
	h := newTestServer(t)

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/v1/airports/search?keyword=lis", nil,
		ut.Header{Key: middleware.UserIDHeader, Value: "user-1"},
	)
	if got := w.Result().StatusCode(); got != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", got)
	}
}
