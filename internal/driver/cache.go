package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"bindc/internal/tas"
)

// Bump when the payload format changes; stale entries are then misses.
const cacheSchemaVersion uint16 = 1

// Cache stores mapped target surfaces on disk, keyed by input digest,
// option fingerprint and triple. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema  uint16
	Surface *tas.Surface
}

// OpenCache initializes a cache under the standard user cache location.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app, "surfaces")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// OpenCacheAt uses an explicit directory, for tests and --cache-dir.
func OpenCacheAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key [32]byte) string {
	return filepath.Join(c.dir, hex.EncodeToString(key[:])+".bin")
}

// Load returns the cached surface, nil on a miss, or an error when the entry
// exists but cannot be decoded. Corrupt entries are removed.
func (c *Cache) Load(key [32]byte) (*tas.Surface, error) {
	c.mu.RLock()
	data, err := os.ReadFile(c.pathFor(key))
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var payload cachePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		c.drop(key)
		return nil, fmt.Errorf("decode: %w", err)
	}
	if payload.Schema != cacheSchemaVersion || payload.Surface == nil {
		c.drop(key)
		return nil, nil
	}
	return payload.Surface, nil
}

// Store writes a surface atomically (temp file plus rename).
func (c *Cache) Store(key [32]byte, sur *tas.Surface) error {
	data, err := msgpack.Marshal(cachePayload{Schema: cacheSchemaVersion, Surface: sur})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.pathFor(key)
	tmp, err := os.CreateTemp(c.dir, "surface-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Cache) drop(key [32]byte) {
	c.mu.Lock()
	os.Remove(c.pathFor(key))
	c.mu.Unlock()
}

// cacheKey binds an entry to the input content, every option that shapes the
// output, and the target triple.
func cacheKey(unit Unit, req Request) [32]byte {
	h := sha256.New()
	h.Write(unit.Digest[:])
	fmt.Fprintf(h, "schema=%d\n", cacheSchemaVersion)
	fmt.Fprintf(h, "triple=%s\n", unit.Triple)
	fmt.Fprintf(h, "header=%s\n", req.Header)
	fmt.Fprintf(h, "class=%s\nlib=%s\nsystem=%t\n", req.ClassName, req.LibraryName, req.EmitSystemTypes)
	for _, a := range req.Aliases {
		fmt.Fprintf(h, "alias=%s>%s\n", a.From, a.To)
	}
	for _, n := range req.IgnoredNames {
		fmt.Fprintf(h, "ignore=%s\n", n)
	}
	var key [32]byte
	h.Sum(key[:0])
	return key
}
