// Package fingerprint defines the per-file fingerprints that duplicate
// detection groups on, the comparator between them, and the providers that
// compute them from image files.
//
// A Fingerprint is a tagged value: its Mode decides how two fingerprints are
// compared. Exact fingerprints are opaque content digests compared for
// equality; perceptual fingerprints are bit vectors compared by Hamming
// distance.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFingerprint reports a fingerprint of the wrong shape for the
// comparison being made. It indicates a provider contract violation.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// Mode selects how fingerprints are computed and compared.
type Mode uint8

const (
	// ModeExact compares content digests for bitwise equality.
	ModeExact Mode = iota + 1
	// ModePerceptual compares perceptual hashes by Hamming distance.
	ModePerceptual
)

// String returns the command-line name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModePerceptual:
		return "perceptual"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses "exact" or "perceptual" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return ModeExact, nil
	case "perceptual":
		return ModePerceptual, nil
	default:
		return 0, fmt.Errorf("unsupported mode %q (want exact or perceptual)", s)
	}
}

// Fingerprint is an immutable, fixed-shape value derived from a file.
// The zero value is not a valid fingerprint.
type Fingerprint struct {
	mode Mode
	data []byte
	bits int
}

// New builds a fingerprint of the given mode. For ModeExact bits is ignored
// and the digest length defines the shape.
func New(mode Mode, data []byte, bits int) (Fingerprint, error) {
	switch mode {
	case ModeExact:
		return NewExact(data), nil
	case ModePerceptual:
		return NewPerceptual(data, bits)
	default:
		return Fingerprint{}, fmt.Errorf("%w: unknown mode %d", ErrInvalidFingerprint, mode)
	}
}

// NewExact wraps a content digest.
func NewExact(digest []byte) Fingerprint {
	return Fingerprint{
		mode: ModeExact,
		data: clone(digest),
		bits: len(digest) * 8,
	}
}

// NewPerceptual wraps a bit vector of the given length, packed most
// significant bit first. Padding bits past the length are cleared.
func NewPerceptual(data []byte, bits int) (Fingerprint, error) {
	if bits <= 0 {
		return Fingerprint{}, fmt.Errorf("%w: perceptual length must be positive, got %d", ErrInvalidFingerprint, bits)
	}
	if want := (bits + 7) / 8; len(data) != want {
		return Fingerprint{}, fmt.Errorf("%w: %d bits need %d bytes, got %d", ErrInvalidFingerprint, bits, want, len(data))
	}
	buf := clone(data)
	if pad := len(buf)*8 - bits; pad > 0 {
		buf[len(buf)-1] &^= byte(1<<pad) - 1
	}
	return Fingerprint{mode: ModePerceptual, data: buf, bits: bits}, nil
}

// FromUint64 wraps a 64-bit perceptual hash.
func FromUint64(v uint64) Fingerprint {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return Fingerprint{mode: ModePerceptual, data: buf, bits: 64}
}

// ParseBits builds a perceptual fingerprint from a string of '0' and '1',
// most significant bit first. Underscores and spaces are ignored.
func ParseBits(s string) (Fingerprint, error) {
	var bits []bool
	for _, r := range s {
		switch r {
		case '0':
			bits = append(bits, false)
		case '1':
			bits = append(bits, true)
		case '_', ' ':
		default:
			return Fingerprint{}, fmt.Errorf("%w: unexpected character %q in bit string", ErrInvalidFingerprint, r)
		}
	}
	if len(bits) == 0 {
		return Fingerprint{}, fmt.Errorf("%w: empty bit string", ErrInvalidFingerprint)
	}

	buf := make([]byte, (len(bits)+7)/8)
	for i, set := range bits {
		if set {
			buf[i/8] |= 0x80 >> (i % 8)
		}
	}
	return Fingerprint{mode: ModePerceptual, data: buf, bits: len(bits)}, nil
}

// Mode returns the fingerprint's mode, or 0 for the zero value.
func (f Fingerprint) Mode() Mode { return f.mode }

// Len returns the fingerprint length in bits.
func (f Fingerprint) Len() int { return f.bits }

// IsZero reports whether f is the zero value.
func (f Fingerprint) IsZero() bool { return f.mode == 0 }

// Bytes returns a copy of the packed fingerprint bytes.
func (f Fingerprint) Bytes() []byte { return clone(f.data) }

// Key returns a string usable as a map key. Two fingerprints of the same mode
// have equal keys exactly when they are bitwise identical.
func (f Fingerprint) Key() string {
	return string(f.data)
}

// String renders exact fingerprints as hex and perceptual ones as hex when
// they are byte aligned, otherwise as a bit string.
func (f Fingerprint) String() string {
	if f.mode == ModePerceptual && f.bits%8 != 0 {
		var b strings.Builder
		for i := 0; i < f.bits; i++ {
			if f.data[i/8]&(0x80>>(i%8)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		return b.String()
	}
	return hex.EncodeToString(f.data)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
