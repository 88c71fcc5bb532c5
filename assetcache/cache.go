package assetcache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/global-nexus/newscache/clients"
	"github.com/global-nexus/newscache/config"
)

// Cache stores full static-asset responses identified by Key. Entries belong
// to a named cache generation; Purge removes every generation except the one
// passed, which is how a new shell release evicts its predecessor's assets.
type Cache interface {
	io.Closer
	Stats() Stats
	Get(key *Key) (*Asset, error)
	Put(a *Asset, key *Key) error
	Purge(keepGeneration string) (int, error)
	Name() string
}

// Asset is a cached response: status line, headers and full body.
type Asset struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Stats represents cache stats.
type Stats struct {
	// Size is the cache size in bytes.
	Size uint64

	// Items is the number of items in the cache.
	Items uint64
}

// ErrMissing is returned when the entry isn't found in the cache.
var ErrMissing = errors.New("missing cache entry")

// New returns the cache backend selected by cfg.Mode.
func New(cfg config.Cache) (Cache, error) {
	switch cfg.Mode {
	case "file_system":
		return newFileSystemCache(cfg)
	case "redis":
		redisClient, err := clients.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return newRedisCache(redisClient, cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache mode %q", cfg.Mode)
	}
}

// Assets are encoded as length-prefixed blocks:
// length(statusLine)|statusLine|length(headerJSON)|headerJSON|body

func writeBlock(w io.Writer, b []byte) error {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBlock(r io.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	b := make([]byte, binary.BigEndian.Uint32(n[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func encodeAsset(w io.Writer, a *Asset) error {
	if err := writeBlock(w, []byte(fmt.Sprintf("%d", a.StatusCode))); err != nil {
		return fmt.Errorf("cannot write status: %w", err)
	}
	hdr, err := json.Marshal(a.Header)
	if err != nil {
		return fmt.Errorf("cannot marshal header: %w", err)
	}
	if err := writeBlock(w, hdr); err != nil {
		return fmt.Errorf("cannot write header: %w", err)
	}
	if _, err := w.Write(a.Body); err != nil {
		return fmt.Errorf("cannot write body: %w", err)
	}
	return nil
}

func decodeAsset(r io.Reader) (*Asset, error) {
	status, err := readBlock(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read status: %w", err)
	}
	var statusCode int
	if _, err := fmt.Sscanf(string(status), "%d", &statusCode); err != nil {
		return nil, fmt.Errorf("corrupted status %q: %w", status, err)
	}

	hdr, err := readBlock(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	header := http.Header{}
	if err := json.Unmarshal(hdr, &header); err != nil {
		return nil, fmt.Errorf("corrupted header: %w", err)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read body: %w", err)
	}

	return &Asset{
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
	}, nil
}
