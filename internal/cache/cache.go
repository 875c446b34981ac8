// Package cache is a content-addressed file cache for fetched external
// data. Entries are written atomically so concurrent runs sharing one
// cache directory never observe partial files.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores byte blobs keyed by sha256 content keys under one
// directory.
type Cache struct {
	dir string

	mu       sync.Mutex
	inflight map[string]*sync.Once
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	return &Cache{dir: dir, inflight: make(map[string]*sync.Once)}, nil
}

// Key derives a stable cache key from the given parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key)
}

// Get returns the cached blob and whether it was present.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: read %s", key)
	}
	return data, true, nil
}

// Put stores the blob under key, atomically. An existing entry is left
// untouched; content-addressed entries never change.
func (c *Cache) Put(key string, data []byte) error {
	dst := c.path(key)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	tmp, err := os.CreateTemp(c.dir, key+".tmp*")
	if err != nil {
		return eris.Wrap(err, "cache: create temp")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrap(err, "cache: write temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrap(err, "cache: close temp")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return eris.Wrapf(err, "cache: commit %s", key)
	}
	return nil
}

// GetOrFill returns the cached blob, invoking fill to produce and store
// it on a miss. Concurrent callers of the same key within one process
// fill at most once.
func (c *Cache) GetOrFill(ctx context.Context, key string, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok, err := c.Get(key); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	c.mu.Lock()
	once, ok := c.inflight[key]
	if !ok {
		once = new(sync.Once)
		c.inflight[key] = once
	}
	c.mu.Unlock()

	var fillErr error
	once.Do(func() {
		data, err := fill(ctx)
		if err != nil {
			fillErr = err
			return
		}
		if err := c.Put(key, data); err != nil {
			fillErr = err
			return
		}
		zap.L().Debug("cache: filled entry", zap.String("key", key))
	})
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	if fillErr != nil {
		return nil, fillErr
	}

	data, ok, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another caller's fill failed; run fill ourselves.
		data, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Put(key, data); err != nil {
			return nil, err
		}
		return data, nil
	}
	return data, nil
}
