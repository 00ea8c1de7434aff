// Package pii derives stable, non-reversible tokens for personal identifiers
// so logs and events can correlate rows without carrying the raw values.
package pii

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes keyed BLAKE2b-256 digests. A Hasher with an empty key still
// works but produces unkeyed digests.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher for key. Keys longer than 64 bytes are rejected.
func NewHasher(key []byte) (*Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("pii hash key must be at most %d bytes", blake2b.Size)
	}
	return &Hasher{key: key}, nil
}

// Hash returns the hex digest of value, or "" for an empty value.
func (h *Hasher) Hash(value string) string {
	if h == nil || value == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// unreachable: key length checked in NewHasher
		return ""
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
