// Package types resolves the static type of every expression in a syntax
// arena against a closed table of operator signatures.
package types

import (
	"fmt"

	"github.com/chazu/tern/pkg/ast"
)

// Type is the closed set of static types.
type Type uint8

const (
	Int64 Type = iota
	Uint64
	Float64
	Bool
	Unit
)

func (t Type) String() string {
	switch t {
	case Int64:
		return "Int64"
	case Uint64:
		return "Uint64"
	case Float64:
		return "Float64"
	case Bool:
		return "Bool"
	case Unit:
		return "Unit"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// IsNumeric reports whether t supports arithmetic.
func (t Type) IsNumeric() bool {
	return t == Int64 || t == Uint64 || t == Float64
}

// All returns every type.
func All() []Type {
	return []Type{Int64, Uint64, Float64, Bool, Unit}
}

// TypeMap records the resolved type of each expression.
type TypeMap map[ast.ExprID]Type
