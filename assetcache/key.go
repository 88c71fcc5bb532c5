package assetcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// Version must be increased with each backward-incompatible change
// in the asset encoding.
const Version = 1

// Key is the key for use in the asset cache. Requests are always GET, so
// the URL alone identifies an entry; Generation scopes it to one cache
// version.
type Key struct {
	// URL is the full request URL.
	URL string

	// Generation names the cache version the entry belongs to.
	Generation string
}

// NewKey constructs a cache key for url under the given generation.
func NewKey(url, generation string) *Key {
	return &Key{
		URL:        url,
		Generation: generation,
	}
}

func (k *Key) filePath(dir string) string {
	return filepath.Join(dir, k.Generation, k.String())
}

func (k *Key) redisKey() string {
	return fmt.Sprintf("asset:%s:%s", k.Generation, k.String())
}

// String returns the hashed form of the URL. The generation is kept out of
// the hash; backends scope entries by generation themselves so Purge can
// enumerate whole generations.
func (k *Key) String() string {
	s := fmt.Sprintf("V%d; URL=%q", Version, k.URL)
	h := sha256.Sum256([]byte(s))

	// The first 16 bytes of the hash should be enough
	// for collision prevention :)
	return hex.EncodeToString(h[:16])
}
