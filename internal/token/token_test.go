package token

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	g := NewGenerator()

	tok, err := g.Generate("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	assert.Equal(t, strings.ToLower(tok), tok)
}

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		tok, err := g.Generate("same-seed")
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	random := bytes.Repeat([]byte{7}, randomBytes)

	a, err := NewGeneratorWithReader(bytes.NewReader(random)).Generate("a@example.com")
	require.NoError(t, err)
	b, err := NewGeneratorWithReader(bytes.NewReader(random)).Generate("b@example.com")
	require.NoError(t, err)
	unseeded, err := NewGeneratorWithReader(bytes.NewReader(random)).Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, unseeded)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateReaderError(t *testing.T) {
	_, err := NewGeneratorWithReader(failingReader{}).Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestGenerateShortRead(t *testing.T) {
	_, err := NewGeneratorWithReader(bytes.NewReader([]byte{1, 2, 3})).Generate()
	require.Error(t, err)
}
