package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newListingServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sampleListing = `[
  {"id":"w1","type":"background_page","url":"chrome-extension://abc","title":"ext","webSocketDebuggerUrl":"ws://h/devtools/page/w1"},
  {"id":"t1","type":"page","url":"https://x.com/home","title":"X","webSocketDebuggerUrl":"ws://h/devtools/page/t1"},
  {"id":"t2","type":"page","url":"https://example.org/","title":"Example","webSocketDebuggerUrl":"ws://h/devtools/page/t2"}
]`

func TestResolve_FirstPageWithoutFilter(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)

	wsURL, pageURL, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wsURL != "ws://h/devtools/page/t1" {
		t.Errorf("wsURL = %q", wsURL)
	}
	if pageURL != "https://x.com/home" {
		t.Errorf("pageURL = %q", pageURL)
	}
}

func TestResolve_CaseInsensitiveFilter(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)

	_, pageURL, err := r.Resolve(context.Background(), "X.COM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pageURL != "https://x.com/home" {
		t.Errorf("pageURL = %q", pageURL)
	}
}

func TestResolve_NoMatchListsCandidates(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)

	_, _, err := r.Resolve(context.Background(), "github.com")
	if err == nil {
		t.Fatal("expected error")
	}
	var nm *noMatchingTargetError
	if !errors.As(err, &nm) {
		t.Fatalf("expected noMatchingTargetError, got %T: %v", err, err)
	}
	if len(nm.Available) != 2 {
		t.Errorf("Available = %v, want both page urls", nm.Available)
	}
	for _, u := range []string{"https://x.com/home", "https://example.org/"} {
		if !strings.Contains(err.Error(), u) {
			t.Errorf("error should enumerate %q: %v", u, err)
		}
	}
}

func TestResolve_NoPageTargets(t *testing.T) {
	srv := newListingServer(t, `[{"id":"w1","type":"worker","url":"u","title":"t"}]`)
	r := NewResolver(srv.URL)

	_, _, err := r.Resolve(context.Background(), "")
	if !errors.Is(err, errNoPageTargets) {
		t.Fatalf("expected errNoPageTargets, got %v", err)
	}
	if err.Error() != "No page targets found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestResolve_MissingEventEndpoint(t *testing.T) {
	srv := newListingServer(t, `[{"id":"t1","type":"page","url":"https://a.test/","title":"a"}]`)
	r := NewResolver(srv.URL)

	_, _, err := r.Resolve(context.Background(), "")
	var me *missingEndpointError
	if !errors.As(err, &me) {
		t.Fatalf("expected missingEndpointError, got %v", err)
	}
	if me.URL != "https://a.test/" {
		t.Errorf("URL = %q", me.URL)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)

	ws1, url1, err1 := r.Resolve(context.Background(), "example")
	ws2, url2, err2 := r.Resolve(context.Background(), "example")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if ws1 != ws2 || url1 != url2 {
		t.Errorf("resolution not stable: (%q,%q) vs (%q,%q)", ws1, url1, ws2, url2)
	}
}

func TestListTargets_PagesOnly(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)

	pages, err := r.ListTargets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for _, p := range pages {
		if p.Type != targetTypePage {
			t.Errorf("non-page target leaked: %+v", p)
		}
	}
}

func TestListTargets_EndpointDown(t *testing.T) {
	srv := newListingServer(t, sampleListing)
	r := NewResolver(srv.URL)
	srv.Close()

	if _, err := r.ListTargets(context.Background()); err == nil {
		t.Error("expected transport error")
	}
}
