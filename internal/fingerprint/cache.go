package fingerprint

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// CacheKey identifies a fingerprint computed from a specific version of a
// file. A change in size or modification time invalidates the entry.
type CacheKey struct {
	Path      string
	Mode      Mode
	Algorithm string
	Size      int64
	ModTime   time.Time
}

// Cache stores previously computed fingerprints. It is satisfied by *store.DB.
type Cache interface {
	GetFingerprint(key CacheKey) (Fingerprint, bool, error)
	PutFingerprint(key CacheKey, fp Fingerprint) error
}

// CachedHasher wraps a Hasher and skips rehashing files whose size and
// modification time are unchanged since the last run.
type CachedHasher struct {
	next   Hasher
	cache  Cache
	logger *slog.Logger
}

// NewCachedHasher wraps next with cache. Cache failures are logged and
// otherwise ignored.
func NewCachedHasher(next Hasher, cache Cache, logger *slog.Logger) *CachedHasher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedHasher{next: next, cache: cache, logger: logger}
}

// Mode returns the wrapped hasher's mode.
func (c *CachedHasher) Mode() Mode { return c.next.Mode() }

// Name returns the wrapped hasher's name.
func (c *CachedHasher) Name() string { return c.next.Name() }

// Hash returns the cached fingerprint for path if present, otherwise computes
// and stores it.
func (c *CachedHasher) Hash(ctx context.Context, path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "stat", Err: err}
	}

	key := CacheKey{
		Path:      path,
		Mode:      c.next.Mode(),
		Algorithm: c.next.Name(),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
	}

	fp, ok, err := c.cache.GetFingerprint(key)
	if err != nil {
		c.logger.Debug("fingerprint cache lookup failed", "path", path, "error", err)
	} else if ok {
		return fp, nil
	}

	fp, err = c.next.Hash(ctx, path)
	if err != nil {
		return Fingerprint{}, err
	}

	if err := c.cache.PutFingerprint(key, fp); err != nil {
		c.logger.Debug("fingerprint cache store failed", "path", path, "error", err)
	}
	return fp, nil
}

var _ Hasher = (*CachedHasher)(nil)
