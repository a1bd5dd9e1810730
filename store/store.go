// Package store keeps compiled programs addressed by the SHA-256 of their
// TNBC encoding.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/chazu/tern/pkg/bytecode"
)

// ErrNotFound is returned by Get for a hash the store does not hold.
var ErrNotFound = errors.New("program not found")

// Hash identifies a program by content.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash decodes the hex form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parsing hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parsing hash: got %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// HashProgram returns the content hash of p.
func HashProgram(p *bytecode.Program) (Hash, error) {
	data, err := p.Serialize()
	if err != nil {
		return Hash{}, fmt.Errorf("hashing program: %w", err)
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) Hash { return sha256.Sum256(data) }

// Store is a content-addressed program cache. Putting the same program twice
// yields the same hash and keeps one copy.
type Store interface {
	Put(p *bytecode.Program) (Hash, error)
	Get(h Hash) (*bytecode.Program, error)
	Has(h Hash) bool
}
