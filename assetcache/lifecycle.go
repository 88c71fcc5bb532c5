package assetcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/global-nexus/newscache/log"
)

// State is the lifecycle phase of the asset cache worker.
type State int

const (
	// StateInstalling means the shell manifest is being precached.
	StateInstalling State = iota

	// StateActivating means stale generations are being purged.
	StateActivating

	// StateActive means the current generation serves traffic.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Lifecycle drives the asset cache through install → activate → active,
// making the generation invariant explicit: once Activate returns, no entry
// of a previous generation remains retrievable.
type Lifecycle struct {
	cache      Cache
	generation string
	origin     string
	manifest   []string
	client     *http.Client

	mu    sync.Mutex
	state State
}

// NewLifecycle prepares a lifecycle for the given cache generation.
// origin is the app shell origin the manifest is fetched from.
func NewLifecycle(cache Cache, generation, origin string, manifest []string, timeout time.Duration) *Lifecycle {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Lifecycle{
		cache:      cache,
		generation: generation,
		origin:     strings.TrimSuffix(origin, "/"),
		manifest:   manifest,
		client:     &http.Client{Timeout: timeout},
		state:      StateInstalling,
	}
}

// State returns the current lifecycle phase.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Generation returns the generation this lifecycle serves.
func (l *Lifecycle) Generation() string {
	return l.generation
}

// Install precaches the shell manifest into the current generation.
// A failed manifest entry is logged and skipped; the offline shell degrades
// instead of blocking startup.
func (l *Lifecycle) Install(ctx context.Context) int {
	cached := 0
	for _, path := range l.manifest {
		url := l.origin + path
		if err := l.precache(ctx, url); err != nil {
			log.Errorf("lifecycle %q: cannot precache %q: %s", l.generation, url, err)
			continue
		}
		cached++
	}
	log.Infof("lifecycle %q: precached %d of %d shell assets", l.generation, cached, len(l.manifest))
	return cached
}

func (l *Lifecycle) precache(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	a := &Asset{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	return l.cache.Put(a, NewKey(url, l.generation))
}

// Activate purges every other generation and starts serving. Returns the
// number of purged entries.
func (l *Lifecycle) Activate() (int, error) {
	l.mu.Lock()
	l.state = StateActivating
	l.mu.Unlock()

	removed, err := l.cache.Purge(l.generation)
	if err != nil {
		return removed, fmt.Errorf("lifecycle %q: purge failed: %w", l.generation, err)
	}

	l.mu.Lock()
	l.state = StateActive
	l.mu.Unlock()

	log.Infof("lifecycle %q: active; purged %d stale entries", l.generation, removed)
	return removed, nil
}

// Cacheable reports whether a network response may be stored: only full 200
// responses, and only when same-origin or explicitly CORS-permitted. Opaque
// cross-origin responses are never cached.
func Cacheable(statusCode int, sameOrigin bool, header http.Header) bool {
	if statusCode != http.StatusOK {
		return false
	}
	if sameOrigin {
		return true
	}
	return header.Get("Access-Control-Allow-Origin") != ""
}
