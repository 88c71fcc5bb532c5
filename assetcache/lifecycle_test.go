package assetcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newShellServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	pages := map[string]string{
		"/":              "<!doctype html><title>Global Nexus</title>",
		"/index.html":    "<!doctype html><title>Global Nexus</title>",
		"/manifest.json": `{"name":"Global Nexus"}`,
	}
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "text/html")
		rw.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func TestLifecycleInstallActivate(t *testing.T) {
	srv := newShellServer(t)
	defer srv.Close()

	cfg := newTestFSConfig(t)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer c.Close()

	// Seed an entry of a previous release that activation must purge.
	if err := os.MkdirAll(filepath.Join(cfg.FileSystem.Dir, "static-v0"), 0o700); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	stale := NewKey(srv.URL+"/index.html", "static-v0")
	if err := c.Put(testAsset(), stale); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	manifest := []string{"/", "/index.html", "/manifest.json", "/missing.png"}
	l := NewLifecycle(c, "static-v1", srv.URL, manifest, 5*time.Second)

	if l.State() != StateInstalling {
		t.Fatalf("unexpected state %s; expecting installing", l.State())
	}

	// The missing manifest entry is skipped, not fatal.
	if cached := l.Install(context.Background()); cached != 3 {
		t.Fatalf("unexpected precache count %d; expecting 3", cached)
	}

	removed, err := l.Activate()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if removed != 1 {
		t.Fatalf("unexpected purge count %d; expecting 1", removed)
	}
	if l.State() != StateActive {
		t.Fatalf("unexpected state %s; expecting active", l.State())
	}

	// Precached shell assets are retrievable under the new generation.
	a, err := c.Get(NewKey(srv.URL+"/index.html", "static-v1"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if a.StatusCode != http.StatusOK || len(a.Body) == 0 {
		t.Fatalf("unexpected precached asset %+v", a)
	}

	// The previous generation is gone.
	if _, err := c.Get(stale); !errors.Is(err, ErrMissing) {
		t.Fatalf("expecting ErrMissing for the purged generation; got %v", err)
	}
}

func TestLifecycleInstallOffline(t *testing.T) {
	srv := newShellServer(t)
	origin := srv.URL
	srv.Close()

	c, err := New(newTestFSConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer c.Close()

	l := NewLifecycle(c, "static-v1", origin, []string{"/", "/index.html"}, time.Second)
	if cached := l.Install(context.Background()); cached != 0 {
		t.Fatalf("unexpected precache count %d with the origin down; expecting 0", cached)
	}

	// Activation still succeeds; the cache just starts cold.
	if _, err := l.Activate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if l.State() != StateActive {
		t.Fatalf("unexpected state %s; expecting active", l.State())
	}
}

func TestCacheable(t *testing.T) {
	cors := http.Header{"Access-Control-Allow-Origin": []string{"*"}}

	testCases := []struct {
		statusCode int
		sameOrigin bool
		header     http.Header
		expected   bool
	}{
		{http.StatusOK, true, http.Header{}, true},
		{http.StatusOK, false, cors, true},
		{http.StatusOK, false, http.Header{}, false},
		{http.StatusPartialContent, true, http.Header{}, false},
		{http.StatusNotFound, true, http.Header{}, false},
		{http.StatusInternalServerError, false, cors, false},
	}

	for _, tc := range testCases {
		if got := Cacheable(tc.statusCode, tc.sameOrigin, tc.header); got != tc.expected {
			t.Fatalf("unexpected Cacheable(%d, %v)=%v; expecting %v", tc.statusCode, tc.sameOrigin, got, tc.expected)
		}
	}
}

func TestStateString(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{StateInstalling, "installing"},
		{StateActivating, "activating"},
		{StateActive, "active"},
		{State(42), "unknown(42)"},
	}
	for _, tc := range testCases {
		if got := tc.state.String(); got != tc.expected {
			t.Fatalf("unexpected state string %q; expecting %q", got, tc.expected)
		}
	}
}
