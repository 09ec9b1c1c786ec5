// Package cache persists built models under a key that names everything
// the model depends on. A cached model is only reused under an identical
// key; there is no other invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a built model. Every component that changes the model
// must be a field here.
type Key struct {
	NetworkID string `json:"network_id"`
	// Parameters is the fingerprint of the network's layers and weights.
	Parameters string `json:"parameters"`
	InputShape []int  `json:"input_shape"`
	// Variant names the perturbation family and the tightening algorithm.
	Variant         string `json:"variant"`
	EncodingVersion int    `json:"encoding_version"`
}

// String enumerates the key components in a fixed order.
func (k Key) String() string {
	dims := make([]string, len(k.InputShape))
	for i, d := range k.InputShape {
		dims[i] = strconv.Itoa(d)
	}
	return fmt.Sprintf("network=%s;params=%s;shape=%s;variant=%s;encoding=%d",
		k.NetworkID, k.Parameters, strings.Join(dims, "x"), k.Variant, k.EncodingVersion)
}

// Digest returns the sha256 of String.
func (k Key) Digest() Digest {
	return Digest{sum: sha256.Sum256([]byte(k.String()))}
}

// Digest is a sha256 digest.
type Digest struct {
	sum [32]byte
}

// ParseDigest parses a digest in the form "sha256-<hex>" or "sha256:<hex>".
func ParseDigest(s string) (Digest, error) {
	i := strings.IndexAny(s, "-:")
	if i < 0 || s[:i] != "sha256" {
		return Digest{}, fmt.Errorf("cache: invalid digest %q", s)
	}
	var d Digest
	n, err := hex.Decode(d.sum[:], []byte(s[i+1:]))
	if err != nil {
		return Digest{}, fmt.Errorf("cache: invalid digest %q: %w", s, err)
	}
	if n != len(d.sum) {
		return Digest{}, errors.New("cache: digest too short")
	}
	return d, nil
}

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return Digest{sum: sha256.Sum256(data)}
}

func (d Digest) String() string {
	return fmt.Sprintf("sha256-%x", d.sum[:])
}

// IsValid reports whether d is not the zero digest.
func (d Digest) IsValid() bool {
	return d != Digest{}
}
