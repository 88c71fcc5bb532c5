package assetcache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/global-nexus/newscache/config"
	"github.com/global-nexus/newscache/log"
	"github.com/klauspost/compress/gzip"
)

var cachefileRegexp = regexp.MustCompile(`^[0-9a-f]{32}$`)

// fileSystemCache stores assets on disk, one directory per generation,
// bodies gzip-compressed.
type fileSystemCache struct {
	dir        string
	generation string
	maxSize    uint64
	expire     time.Duration
	stats      Stats

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// newFileSystemCache returns new cache for the given cfg.
func newFileSystemCache(cfg config.Cache) (*fileSystemCache, error) {
	if len(cfg.FileSystem.Dir) == 0 {
		return nil, fmt.Errorf("`dir` cannot be empty")
	}
	if cfg.FileSystem.MaxSize <= 0 {
		return nil, fmt.Errorf("`max_size` must be positive")
	}
	if cfg.Expire <= 0 {
		return nil, fmt.Errorf("`expire` must be positive")
	}

	c := &fileSystemCache{
		dir:        cfg.FileSystem.Dir,
		generation: cfg.Generation,
		maxSize:    uint64(cfg.FileSystem.MaxSize),
		expire:     time.Duration(cfg.Expire),
		stopCh:     make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Join(c.dir, c.generation), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create %q: %w", c.dir, err)
	}

	c.wg.Add(1)
	go func() {
		log.Debugf("cache %q: cleaner start", c.Name())
		c.cleaner()
		log.Debugf("cache %q: cleaner stop", c.Name())
		c.wg.Done()
	}()

	return c, nil
}

func (f *fileSystemCache) Name() string {
	return "file_system"
}

func (f *fileSystemCache) Close() error {
	log.Debugf("cache %q: stopping", f.Name())
	close(f.stopCh)
	f.wg.Wait()
	log.Debugf("cache %q: stopped", f.Name())
	return nil
}

func (f *fileSystemCache) Stats() Stats {
	var s Stats
	s.Size = atomic.LoadUint64(&f.stats.Size)
	s.Items = atomic.LoadUint64(&f.stats.Items)
	return s
}

func (f *fileSystemCache) Get(key *Key) (*Asset, error) {
	fp := key.filePath(f.dir)
	file, err := os.Open(fp)
	if err != nil {
		return nil, ErrMissing
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("cache %q: cannot stat %q: %w", f.Name(), fp, err)
	}
	if time.Since(fi.ModTime()) > f.expire {
		return nil, ErrMissing
	}

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("cache %q: corrupted entry %q: %w", f.Name(), fp, err)
	}
	defer zr.Close()

	return decodeAsset(zr)
}

func (f *fileSystemCache) Put(a *Asset, key *Key) error {
	bb := &bytes.Buffer{}
	zw := gzip.NewWriter(bb)
	if err := encodeAsset(zw, a); err != nil {
		return fmt.Errorf("cache %q: cannot encode %q: %w", f.Name(), key.URL, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("cache %q: cannot compress %q: %w", f.Name(), key.URL, err)
	}

	fp := key.filePath(f.dir)
	if err := os.WriteFile(fp, bb.Bytes(), 0o600); err != nil {
		return fmt.Errorf("cache %q: cannot write %q: %w", f.Name(), fp, err)
	}

	atomic.AddUint64(&f.stats.Size, uint64(bb.Len()))
	atomic.AddUint64(&f.stats.Items, 1)
	return nil
}

// Purge removes every generation directory except keepGeneration and returns
// the number of entries dropped.
func (f *fileSystemCache) Purge(keepGeneration string) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("cache %q: cannot enumerate %q: %w", f.Name(), f.dir, err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keepGeneration {
			continue
		}
		gen := filepath.Join(f.dir, e.Name())
		files, err := os.ReadDir(gen)
		if err != nil {
			log.Errorf("cache %q: cannot enumerate stale generation %q: %s", f.Name(), gen, err)
			continue
		}
		if err := os.RemoveAll(gen); err != nil {
			log.Errorf("cache %q: cannot remove stale generation %q: %s", f.Name(), gen, err)
			continue
		}
		log.Debugf("cache %q: removed stale generation %q", f.Name(), e.Name())
		removed += len(files)
	}
	return removed, nil
}

func (f *fileSystemCache) cleaner() {
	d := f.expire / 2
	if d < time.Minute {
		d = time.Minute
	}
	if d > time.Hour {
		d = time.Hour
	}

	f.clean()
	for {
		select {
		case <-time.After(d):
			f.clean()
		case <-f.stopCh:
			return
		}
	}
}

func (f *fileSystemCache) clean() {
	currentTime := time.Now()
	dir := filepath.Join(f.dir, f.generation)

	log.Debugf("cache %q: start cleaning dir %q", f.Name(), dir)

	// Remove expired entries and recount totals.
	var totalSize uint64
	var totalItems uint64
	type fileInfo struct {
		path    string
		size    uint64
		modTime time.Time
	}
	var files []fileInfo

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Errorf("cache %q: cannot read dir %q: %s", f.Name(), dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !cachefileRegexp.MatchString(e.Name()) {
			// Skip invalid entries. They may appear from upgrades
			// or manual tinkering in the cache dir.
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		fp := filepath.Join(dir, e.Name())
		if currentTime.Sub(fi.ModTime()) > f.expire {
			if err := os.Remove(fp); err != nil {
				log.Errorf("cache %q: cannot remove expired %q: %s", f.Name(), fp, err)
			}
			continue
		}
		files = append(files, fileInfo{path: fp, size: uint64(fi.Size()), modTime: fi.ModTime()})
		totalSize += uint64(fi.Size())
		totalItems++
	}

	// Evict oldest entries while the generation exceeds max_size.
	for totalSize > f.maxSize && len(files) > 0 {
		oldest := 0
		for i, fi := range files {
			if fi.modTime.Before(files[oldest].modTime) {
				oldest = i
			}
		}
		fi := files[oldest]
		if err := os.Remove(fi.path); err != nil {
			log.Errorf("cache %q: cannot remove %q: %s", f.Name(), fi.path, err)
			break
		}
		totalSize -= fi.size
		totalItems--
		files = append(files[:oldest], files[oldest+1:]...)
	}

	atomic.StoreUint64(&f.stats.Size, totalSize)
	atomic.StoreUint64(&f.stats.Items, totalItems)

	log.Debugf("cache %q: final size %d; final items %d", f.Name(), totalSize, totalItems)
}
