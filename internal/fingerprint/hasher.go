package fingerprint

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Hasher computes a fingerprint for the file at path. Implementations must be
// deterministic and safe for concurrent use.
type Hasher interface {
	// Mode is the mode of every fingerprint the hasher returns.
	Mode() Mode
	// Name identifies the algorithm, e.g. "sha256" or "phash".
	Name() string
	// Hash computes the fingerprint. Failures are returned as *Error.
	Hash(ctx context.Context, path string) (Fingerprint, error)
}

// Error reports a per-file fingerprinting failure. The file is skipped, the
// run continues.
type Error struct {
	Path string
	Op   string // "stat", "read" or "decode"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// readChunkSize bounds memory use when digesting large files.
const readChunkSize = 1 << 20

// ContentHasher fingerprints files by the sha256 digest of their bytes.
type ContentHasher struct{}

// NewContentHasher returns a ContentHasher.
func NewContentHasher() *ContentHasher {
	return &ContentHasher{}
}

// Mode returns ModeExact.
func (h *ContentHasher) Mode() Mode { return ModeExact }

// Name returns "sha256".
func (h *ContentHasher) Name() string { return "sha256" }

// Hash streams the file through sha256.
func (h *ContentHasher) Hash(ctx context.Context, path string) (Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "read", Err: err}
	}
	defer f.Close()

	sum := sha256.New()
	buf := make([]byte, readChunkSize)
	if _, err := io.CopyBuffer(sum, f, buf); err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "read", Err: err}
	}
	return NewExact(sum.Sum(nil)), nil
}

var _ Hasher = (*ContentHasher)(nil)
