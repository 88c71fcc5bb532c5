package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/global-nexus/newscache/assetcache"
	"github.com/global-nexus/newscache/config"
	"github.com/global-nexus/newscache/feed"
	"github.com/global-nexus/newscache/log"
	"github.com/global-nexus/newscache/nexus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/acme/autocert"
)

var configFile = flag.String("config", "config.yml", "Daemon configuration filename")

var allowedNetworksMetrics atomic.Value

func main() {
	flag.Parse()

	log.Infof("Loading config: %s", *configFile)
	cfg, err := reloadConfig()
	if err != nil {
		log.Fatalf("error while loading config: %s", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	go func() {
		for range c {
			log.Infof("SIGHUP received. Going to reload config %s ...", *configFile)
			if _, err := reloadConfig(); err != nil {
				log.Errorf("error while reloading config: %s", err)
				continue
			}
			log.Infof("Reloading config %s: successful", *configFile)
		}
	}()

	origin, err := url.Parse(cfg.Upstream.ShellURL)
	if err != nil {
		log.Fatalf("wrong `upstream.shell_url` %q: %s", cfg.Upstream.ShellURL, err)
	}

	cache, err := assetcache.New(cfg.Cache)
	if err != nil {
		log.Fatalf("cannot initialize asset cache: %s", err)
	}
	registerMetrics(cache)

	lifecycle := assetcache.NewLifecycle(cache, cfg.Cache.Generation, cfg.Upstream.ShellURL,
		cfg.Cache.Precache, time.Duration(cfg.Upstream.Timeout))

	installCtx, cancelInstall := context.WithTimeout(context.Background(), time.Minute)
	precachedAssets.Set(float64(lifecycle.Install(installCtx)))
	cancelInstall()
	if _, err := lifecycle.Activate(); err != nil {
		log.Fatalf("cannot activate asset cache generation %q: %s", cfg.Cache.Generation, err)
	}

	proxy := newShellProxy(cache, lifecycle, origin, time.Duration(cfg.Upstream.Timeout), currentRules)

	if len(cfg.Backend.URL) > 0 {
		go bootstrapBackend(cfg.Backend)
	}

	server := http.NewServeMux()
	server.HandleFunc("/metrics", serveMetrics)
	server.Handle("/", proxy)

	if len(cfg.Server.HTTPS.ListenAddr) != 0 {
		go serveTLS(cfg.Server.HTTPS, server)
	}
	if len(cfg.Server.HTTP.ListenAddr) != 0 {
		go serve(cfg.Server.HTTP, server)
	}

	if ok, err := sdNotifyReady(); err != nil {
		log.Errorf("cannot notify systemd: %s", err)
	} else if ok {
		log.Debugf("systemd notified of readiness")
	}

	select {}
}

// bootstrapBackend performs the once-per-session actor bootstrap: the
// idempotent initialize call, a cache warm-up of the article list and the
// breaking-news poller, plus the reachability heartbeat. None of it is fatal;
// the daemon serves cached assets regardless of backend health.
func bootstrapBackend(cfg config.Backend) {
	client, err := nexus.NewClient(cfg)
	if err != nil {
		log.Errorf("cannot initialize backend client: %s", err)
		return
	}
	store := feed.NewStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout))
	defer cancel()

	store.Initialize(ctx)
	if _, err := store.Articles(ctx); err != nil {
		log.Debugf("article warm-up failed: %s", err)
	}

	store.StartBreakingNewsPoller()
	newHeartbeat(client)
}

var metricsHandler = promhttp.Handler()

func serveMetrics(rw http.ResponseWriter, r *http.Request) {
	an := allowedNetworksMetrics.Load().(*config.Networks)
	if !an.Contains(r.RemoteAddr) {
		err := fmt.Errorf("connections to /metrics are not allowed from %s", r.RemoteAddr)
		rw.Header().Set("Connection", "close")
		http.Error(rw, err.Error(), http.StatusForbidden)
		return
	}
	metricsHandler.ServeHTTP(rw, r)
}

func serveTLS(cfg config.HTTPS, h http.Handler) {
	ln, err := net.Listen("tcp4", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("cannot listen for %q: %s", cfg.ListenAddr, err)
	}
	tlsCfg := newTLSConfig(cfg)
	tln := tls.NewListener(ln, tlsCfg)
	log.Infof("Serving https on %q", cfg.ListenAddr)
	if err := listenAndServe(tln, h); err != nil {
		log.Fatalf("TLS server error on %q: %s", cfg.ListenAddr, err)
	}
}

func serve(cfg config.HTTP, h http.Handler) {
	ln, err := net.Listen("tcp4", cfg.ListenAddr)
	if err != nil {
		log.Fatalf("cannot listen for %q: %s", cfg.ListenAddr, err)
	}
	log.Infof("Serving http on %q", cfg.ListenAddr)
	if err := listenAndServe(ln, h); err != nil {
		log.Fatalf("HTTP server error on %q: %s", cfg.ListenAddr, err)
	}
}

func newTLSConfig(cfg config.HTTPS) *tls.Config {
	tlsCfg := tls.Config{
		MinVersion: tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.CurveP256,
			tls.X25519,
		},
	}
	if len(cfg.KeyFile) > 0 && len(cfg.CertFile) > 0 {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			log.Fatalf("cannot load cert for `cert_file`=%q, `key_file`=%q: %s",
				cfg.CertFile, cfg.KeyFile, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	} else {
		if err := os.MkdirAll(cfg.Autocert.CacheDir, 0o700); err != nil {
			log.Fatalf("error while creating folder %q: %s", cfg.Autocert.CacheDir, err)
		}
		var hp autocert.HostPolicy
		if len(cfg.Autocert.AllowedHosts) != 0 {
			allowedHosts := make(map[string]struct{}, len(cfg.Autocert.AllowedHosts))
			for _, v := range cfg.Autocert.AllowedHosts {
				allowedHosts[v] = struct{}{}
			}
			hp = func(_ context.Context, host string) error {
				if _, ok := allowedHosts[host]; ok {
					return nil
				}
				return fmt.Errorf("host %q doesn't match `allowed_hosts` configuration", host)
			}
		}
		m := autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(cfg.Autocert.CacheDir),
			HostPolicy: hp,
		}
		tlsCfg.GetCertificate = m.GetCertificate
	}
	return &tlsCfg
}

func listenAndServe(ln net.Listener, h http.Handler) error {
	s := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: time.Minute,
		IdleTimeout:       time.Minute * 10,
		ErrorLog:          log.ErrorLogger,
	}
	return s.Serve(ln)
}
