// Package hash computes content hashes of syntax trees.
package hash

import (
	"crypto/sha256"

	"github.com/chazu/tern/pkg/ast"
)

// HashSyntax computes the SHA-256 content hash of a syntax unit.
//
// The hash is computed over a deterministic serialization of the tree below
// the unit's root. Two units with the same tree produce the same hash even if
// their nodes sit at different arena ids or source lines.
func HashSyntax(syn *ast.Syntax) ([32]byte, error) {
	data, err := Serialize(syn.Arena, syn.Root)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashLines computes the SHA-256 hash of a syntax unit's tree together with
// the source line of every node. Units that share a HashSyntax value but
// place their nodes on different lines hash differently here.
func HashLines(syn *ast.Syntax) ([32]byte, error) {
	data, err := SerializeLines(syn.Arena, syn.Root)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
