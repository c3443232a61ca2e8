package fingerprint

import (
	"fmt"
	"math"
	"math/bits"
)

// Infinite is the distance between two different exact fingerprints.
const Infinite = math.MaxInt

// Compatible returns an error wrapping ErrInvalidFingerprint unless a and b
// have the same mode and length.
func Compatible(a, b Fingerprint) error {
	if a.IsZero() || b.IsZero() {
		return fmt.Errorf("%w: zero value", ErrInvalidFingerprint)
	}
	if a.mode != b.mode {
		return fmt.Errorf("%w: mode mismatch: %s vs %s", ErrInvalidFingerprint, a.mode, b.mode)
	}
	if a.bits != b.bits || len(a.data) != len(b.data) {
		return fmt.Errorf("%w: length mismatch: %d vs %d bits", ErrInvalidFingerprint, a.bits, b.bits)
	}
	return nil
}

// Distance compares two fingerprints of the same shape.
//
// Exact fingerprints are 0 apart when identical and Infinite otherwise.
// Perceptual fingerprints are the count of differing bit positions.
func Distance(a, b Fingerprint) (int, error) {
	if err := Compatible(a, b); err != nil {
		return 0, err
	}

	switch a.mode {
	case ModeExact:
		for i := range a.data {
			if a.data[i] != b.data[i] {
				return Infinite, nil
			}
		}
		return 0, nil
	case ModePerceptual:
		var d int
		for i := range a.data {
			d += bits.OnesCount8(a.data[i] ^ b.data[i])
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %d", ErrInvalidFingerprint, a.mode)
	}
}
