// Package token produces the opaque identifiers used as signup codes,
// email confirmation keys and password reset tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// randomBytes is the amount of fresh randomness mixed into every token.
const randomBytes = 64

// Generator produces high-entropy opaque strings.
type Generator interface {
	Generate(seed ...string) (string, error)
}

// RandomGenerator hashes optional seed material together with 512 random
// bits into a 64 character lowercase hex string. Seed parts only add context;
// the random component is always present.
type RandomGenerator struct {
	reader io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *RandomGenerator {
	return &RandomGenerator{reader: rand.Reader}
}

// NewGeneratorWithReader is used in tests to control the random source.
func NewGeneratorWithReader(r io.Reader) *RandomGenerator {
	return &RandomGenerator{reader: r}
}

// Generate returns a new token.
func (g *RandomGenerator) Generate(seed ...string) (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.reader, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	h := sha256.New()
	for _, part := range seed {
		h.Write([]byte(part))
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil)), nil
}
