package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2b HashAlgorithm = "blake2b"
)

// Hasher provides pluggable hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(BLAKE2b)
}

// Hash computes a hex digest of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case BLAKE2b:
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// ContentFingerprint identifies a mini-app by its code.
// Two apps with byte-identical HTML, CSS and JS share a fingerprint
// regardless of title or owner.
type ContentFingerprint struct {
	hasher *Hasher
}

// NewContentFingerprint creates a fingerprinter
func NewContentFingerprint(hasher *Hasher) *ContentFingerprint {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &ContentFingerprint{hasher: hasher}
}

// Compute returns the fingerprint of the three code parts.
// Parts are length-prefixed so moving text between them changes the result.
func (f *ContentFingerprint) Compute(html, css, js string) string {
	var sb strings.Builder
	for _, part := range []string{html, css, js} {
		fmt.Fprintf(&sb, "%d:", len(part))
		sb.WriteString(part)
	}
	return f.hasher.HashString(sb.String())
}

// Short returns an 8-character prefix for display and logs
func (f *ContentFingerprint) Short(full string) string {
	if len(full) < 8 {
		return full
	}
	return full[:8]
}
