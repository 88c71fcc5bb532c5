package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/global-nexus/newscache/assetcache"
	"github.com/global-nexus/newscache/log"
)

// shellProxy fronts the app shell origin with the offline asset cache.
// Request routing reproduces the platform's offline policy:
//
//   - non-GET requests and GETs matching a network-only pattern go straight
//     to upstream and never touch the cache;
//   - other GETs are cache-first: a hit is served as-is, a miss is fetched,
//     stored when cacheable, then served;
//   - when upstream is unreachable, navigations get the precached root
//     document as an offline shell and sub-resources get an empty 504.
//
// The network-only check runs before the cache lookup, so a URL matching
// both always goes to the network.
type shellProxy struct {
	cache      assetcache.Cache
	lifecycle  *assetcache.Lifecycle
	generation string

	origin      *url.URL
	passthrough *httputil.ReverseProxy
	client      *http.Client

	// rules is read through a getter since SIGHUP swaps the pattern set.
	rules func() *assetcache.Rules
}

func newShellProxy(cache assetcache.Cache, lifecycle *assetcache.Lifecycle, origin *url.URL, timeout time.Duration, rules func() *assetcache.Rules) *shellProxy {
	passthrough := httputil.NewSingleHostReverseProxy(origin)
	passthrough.ErrorHandler = func(rw http.ResponseWriter, r *http.Request, err error) {
		upstreamErrors.Inc()
		log.Errorf("shell proxy: passthrough to %q failed: %s", r.URL, err)
		rw.WriteHeader(http.StatusBadGateway)
	}

	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &shellProxy{
		cache:       cache,
		lifecycle:   lifecycle,
		generation:  lifecycle.Generation(),
		origin:      origin,
		passthrough: passthrough,
		client:      &http.Client{Timeout: timeout},
		rules:       rules,
	}
}

// targetURL rebuilds the upstream URL for an incoming request, query string
// included, so pattern checks see the same URL the upstream would.
func (p *shellProxy) targetURL(r *http.Request) string {
	return p.origin.Scheme + "://" + p.origin.Host + r.URL.RequestURI()
}

func (p *shellProxy) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	// Only GET requests are ever intercepted.
	if r.Method != http.MethodGet {
		p.passthrough.ServeHTTP(rw, r)
		return
	}

	target := p.targetURL(r)
	if p.rules().NetworkOnly(target) {
		networkOnlyRequests.Inc()
		p.passthrough.ServeHTTP(rw, r)
		return
	}

	key := assetcache.NewKey(target, p.generation)
	if a, err := p.cache.Get(key); err == nil {
		assetCacheHits.Inc()
		p.serveAsset(rw, a, "HIT")
		return
	}
	assetCacheMisses.Inc()

	a, err := p.fetch(r.Context(), target, r)
	if err != nil {
		upstreamErrors.Inc()
		log.Debugf("shell proxy: upstream fetch of %q failed: %s", target, err)
		p.serveOffline(rw, r)
		return
	}

	sameOrigin := strings.EqualFold(hostOf(target), p.origin.Host)
	if assetcache.Cacheable(a.StatusCode, sameOrigin, a.Header) {
		if err := p.cache.Put(a, key); err != nil {
			log.Errorf("shell proxy: cannot cache %q: %s", target, err)
		}
	}
	p.serveAsset(rw, a, "MISS")
}

func (p *shellProxy) fetch(ctx context.Context, target string, r *http.Request) (*assetcache.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	// Bodies are cached and replayed decoded, so don't negotiate encodings.
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &assetcache.Asset{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// hop-by-hop headers are dropped when replaying a stored response.
var hopHeaders = []string{"Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade", "Proxy-Connection"}

func (p *shellProxy) serveAsset(rw http.ResponseWriter, a *assetcache.Asset, cacheState string) {
	h := rw.Header()
	for name, values := range a.Header {
		for _, v := range values {
			h.Add(name, v)
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
	h.Set("X-Cache", cacheState)
	h.Set("Content-Length", fmt.Sprintf("%d", len(a.Body)))

	observeStatusCode(a.StatusCode)
	rw.WriteHeader(a.StatusCode)
	if _, err := rw.Write(a.Body); err != nil {
		log.Debugf("shell proxy: cannot write response: %s", err)
	}
}

func (p *shellProxy) serveOffline(rw http.ResponseWriter, r *http.Request) {
	if isNavigation(r) {
		rootKey := assetcache.NewKey(p.origin.Scheme+"://"+p.origin.Host+"/", p.generation)
		if a, err := p.cache.Get(rootKey); err == nil {
			offlineFallbacks.Inc()
			p.serveAsset(rw, a, "OFFLINE")
			return
		}
	}

	// Sub-resource requests fail without a body while offline.
	rw.WriteHeader(http.StatusGatewayTimeout)
}

// isNavigation reports whether the request loads a page rather than a
// sub-resource.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Host
}
