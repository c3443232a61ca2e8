package fingerprint

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/corona10/goimagehash"

	// Decoders for every extension the scanner accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Algorithm names a goimagehash perceptual hash function.
type Algorithm string

const (
	AlgorithmPHash Algorithm = "phash"
	AlgorithmAHash Algorithm = "ahash"
	AlgorithmDHash Algorithm = "dhash"
)

// DefaultAlgorithm is the DCT-based perceptual hash.
const DefaultAlgorithm = AlgorithmPHash

// ParseAlgorithm parses a perceptual hash algorithm name. An empty string
// selects DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return DefaultAlgorithm, nil
	case AlgorithmPHash, AlgorithmAHash, AlgorithmDHash:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported perceptual algorithm %q (want phash, ahash or dhash)", s)
	}
}

// PerceptualHasher decodes images and fingerprints their visual content as a
// 64-bit perceptual hash.
type PerceptualHasher struct {
	algorithm Algorithm
	hash      func(image.Image) (*goimagehash.ImageHash, error)
}

// NewPerceptualHasher returns a hasher for the given algorithm.
func NewPerceptualHasher(algorithm Algorithm) (*PerceptualHasher, error) {
	h := &PerceptualHasher{algorithm: algorithm}
	switch algorithm {
	case AlgorithmPHash, "":
		h.algorithm = AlgorithmPHash
		h.hash = goimagehash.PerceptionHash
	case AlgorithmAHash:
		h.hash = goimagehash.AverageHash
	case AlgorithmDHash:
		h.hash = goimagehash.DifferenceHash
	default:
		return nil, fmt.Errorf("unsupported perceptual algorithm %q", algorithm)
	}
	return h, nil
}

// Mode returns ModePerceptual.
func (h *PerceptualHasher) Mode() Mode { return ModePerceptual }

// Name returns the algorithm name.
func (h *PerceptualHasher) Name() string { return string(h.algorithm) }

// Hash decodes the image at path and hashes it.
func (h *PerceptualHasher) Hash(ctx context.Context, path string) (Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "read", Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "decode", Err: err}
	}
	return h.HashImage(path, img)
}

// HashImage hashes an already decoded image. path is used only for errors.
func (h *PerceptualHasher) HashImage(path string, img image.Image) (Fingerprint, error) {
	ih, err := h.hash(img)
	if err != nil {
		return Fingerprint{}, &Error{Path: path, Op: "decode", Err: err}
	}
	return FromUint64(ih.GetHash()), nil
}

var _ Hasher = (*PerceptualHasher)(nil)
