package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerGeneratesAndReuses(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if r.Header.Get(HeaderRequestID) != seen {
			t.Errorf("request header %q != context %q", r.Header.Get(HeaderRequestID), seen)
		}
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("generated id = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "upstream-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if seen != "upstream-1" || rr.Header().Get(HeaderRequestID) != "upstream-1" {
		t.Fatalf("inbound id not reused: %q", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), r)
	if len(seen) > maxInboundIDLen {
		t.Fatalf("oversized inbound id kept: %d chars", len(seen))
	}

	got := m.GetMetrics()
	if got.Generated != 2 || got.Reused != 1 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(r.Context()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
