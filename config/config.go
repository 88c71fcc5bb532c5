package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var (
	defaultConfig = Config{
		Server: defaultServer,
		Cache:  defaultCache,
	}

	defaultServer = Server{
		HTTP: HTTP{
			ListenAddr: ":8080",
		},
	}

	defaultCache = Cache{
		Mode:       "file_system",
		Generation: "static-v1",
		Expire:     Duration(12 * time.Hour),
		FileSystem: FileSystemCacheConfig{
			Dir:     "cache-data",
			MaxSize: ByteSize(512 * MB),
		},
		Precache:    DefaultPrecacheManifest(),
		NetworkOnly: DefaultNetworkOnlyPatterns(),
	}

	defaultUpstream = Upstream{
		Timeout: Duration(30 * time.Second),
	}

	defaultBackend = Backend{
		Timeout: Duration(30 * time.Second),
	}
)

// DefaultPrecacheManifest is the app-shell asset set fetched on install.
func DefaultPrecacheManifest() []string {
	return []string{
		"/",
		"/index.html",
		"/manifest.json",
		"/assets/logo.png",
		"/assets/icons/icon-192x192.png",
		"/assets/icons/icon-512x512.png",
	}
}

// DefaultNetworkOnlyPatterns matches backend gateway traffic that must never
// be served from or written to the asset cache.
func DefaultNetworkOnlyPatterns() []string {
	return []string{
		`/api/`,
		`icp0\.io`,
		`ic0\.app`,
		`localhost:4943`,
		`127\.0\.0\.1:4943`,
		`\?canisterId=`,
		`/call$`,
		`/query$`,
		`/read_state$`,
	}
}

// Config describes the newscache daemon: where it listens, which app-shell
// origin it fronts, where the news backend actor lives and how static assets
// are cached for offline use.
type Config struct {
	Server Server `yaml:"server,omitempty"`

	// Upstream is the app shell origin served through the asset cache.
	Upstream Upstream `yaml:"upstream"`

	// Backend is the news actor gateway. Optional; when empty the daemon
	// serves assets only and skips the bootstrap call.
	Backend Backend `yaml:"backend,omitempty"`

	Cache Cache `yaml:"cache,omitempty"`

	// Whether to print debug logs
	LogDebug bool `yaml:"log_debug,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// String implements the stringer interface.
func (c *Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("BUG: cannot marshal Config: %s", err))
	}
	return string(b)
}

// Validate validates passed configuration by additional marshalling
// to ensure that all rules and checks were applied.
func (c *Config) Validate() error {
	content, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error while marshalling config: %s", err)
	}

	cfg := &Config{}
	return yaml.Unmarshal(content, cfg)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultConfig

	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	if len(c.Upstream.ShellURL) == 0 {
		return fmt.Errorf("field `upstream.shell_url` cannot be empty")
	}

	return checkOverflow(c.XXX, "config")
}

// Server describes listen addresses and TLS options.
type Server struct {
	HTTP    HTTP    `yaml:"http,omitempty"`
	HTTPS   HTTPS   `yaml:"https,omitempty"`
	Metrics Metrics `yaml:"metrics,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (s *Server) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*s = defaultServer

	type plain Server
	if err := unmarshal((*plain)(s)); err != nil {
		return err
	}

	if len(s.HTTP.ListenAddr) == 0 && len(s.HTTPS.ListenAddr) == 0 {
		return fmt.Errorf("neither `server.http.listen_addr` nor `server.https.listen_addr` is configured")
	}

	return checkOverflow(s.XXX, "server")
}

// HTTP describes the plain listener.
type HTTP struct {
	// TCP address to listen to for http
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (h *HTTP) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain HTTP
	if err := unmarshal((*plain)(h)); err != nil {
		return err
	}
	return checkOverflow(h.XXX, "server.http")
}

// HTTPS describes the TLS listener. Certs are either loaded from files or
// obtained via Let's Encrypt.
type HTTPS struct {
	// TCP address to listen to for https
	ListenAddr string `yaml:"listen_addr,omitempty"`

	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`

	Autocert Autocert `yaml:"autocert,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (h *HTTPS) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain HTTPS
	if err := unmarshal((*plain)(h)); err != nil {
		return err
	}

	if len(h.ListenAddr) > 0 {
		if len(h.CertFile) > 0 && len(h.KeyFile) == 0 {
			return fmt.Errorf("field `server.https.key_file` must be set when `cert_file` is set")
		}
		if len(h.KeyFile) > 0 && len(h.CertFile) == 0 {
			return fmt.Errorf("field `server.https.cert_file` must be set when `key_file` is set")
		}
		if len(h.CertFile) == 0 && len(h.Autocert.CacheDir) == 0 {
			return fmt.Errorf("configuration `server.https` requires either `cert_file`/`key_file` or `autocert.cache_dir`")
		}
	}

	return checkOverflow(h.XXX, "server.https")
}

// Autocert describes Let's Encrypt certificate management.
type Autocert struct {
	// Path to the directory where autocert certs are cached
	CacheDir string `yaml:"cache_dir,omitempty"`

	// List of host names to which proxy is allowed to respond
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (a *Autocert) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Autocert
	if err := unmarshal((*plain)(a)); err != nil {
		return err
	}
	return checkOverflow(a.XXX, "server.https.autocert")
}

// Metrics describes the /metrics endpoint access policy.
type Metrics struct {
	// List of networks allowed to scrape metrics. Empty allows everything.
	AllowedNetworks Networks `yaml:"allowed_networks,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (m *Metrics) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Metrics
	if err := unmarshal((*plain)(m)); err != nil {
		return err
	}
	return checkOverflow(m.XXX, "server.metrics")
}

// Upstream describes the app shell origin.
type Upstream struct {
	// ShellURL is the origin serving the application shell and static assets.
	ShellURL string `yaml:"shell_url"`

	// Timeout for upstream fetches.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (u *Upstream) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*u = defaultUpstream

	type plain Upstream
	if err := unmarshal((*plain)(u)); err != nil {
		return err
	}
	return checkOverflow(u.XXX, "upstream")
}

// Backend describes the news actor gateway.
type Backend struct {
	// URL is the actor gateway base URL. Empty disables backend bootstrap.
	URL string `yaml:"url,omitempty"`

	// Timeout for actor calls.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (b *Backend) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*b = defaultBackend

	type plain Backend
	if err := unmarshal((*plain)(b)); err != nil {
		return err
	}
	return checkOverflow(b.XXX, "backend")
}

// Cache describes the offline asset cache.
type Cache struct {
	// Mode of cache: `file_system` or `redis`
	Mode string `yaml:"mode,omitempty"`

	// Generation names the current asset-cache version. Entries of every
	// other generation are purged on activation.
	Generation string `yaml:"generation,omitempty"`

	// Expiration period for cached assets.
	Expire Duration `yaml:"expire,omitempty"`

	FileSystem FileSystemCacheConfig `yaml:"file_system,omitempty"`

	Redis RedisCacheConfig `yaml:"redis,omitempty"`

	// Precache lists shell asset paths fetched on install.
	Precache []string `yaml:"precache,omitempty"`

	// NetworkOnly lists URL regexps that bypass the cache entirely.
	NetworkOnly []string `yaml:"network_only_patterns,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Cache) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = defaultCache

	type plain Cache
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	switch c.Mode {
	case "file_system", "redis":
	default:
		return fmt.Errorf("field `cache.mode` must be `file_system` or `redis`; got %q", c.Mode)
	}
	if len(c.Generation) == 0 {
		return fmt.Errorf("field `cache.generation` cannot be empty")
	}

	return checkOverflow(c.XXX, "cache")
}

// FileSystemCacheConfig describes the file-system asset cache backend.
type FileSystemCacheConfig struct {
	// Path to directory where cached assets will be stored.
	Dir string `yaml:"dir,omitempty"`

	// Maximum total size of cached assets per generation.
	MaxSize ByteSize `yaml:"max_size,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (f *FileSystemCacheConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain FileSystemCacheConfig
	if err := unmarshal((*plain)(f)); err != nil {
		return err
	}
	return checkOverflow(f.XXX, "cache.file_system")
}

// RedisCacheConfig describes the redis asset cache backend.
type RedisCacheConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username,omitempty"`
	Password  string   `yaml:"password,omitempty"`

	// Catches all undefined fields
	XXX map[string]interface{} `yaml:",inline"`
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (r *RedisCacheConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain RedisCacheConfig
	if err := unmarshal((*plain)(r)); err != nil {
		return err
	}
	return checkOverflow(r.XXX, "cache.redis")
}

// LoadFile loads and validates configuration from provided file.
func LoadFile(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
