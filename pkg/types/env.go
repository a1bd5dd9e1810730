package types

import (
	"errors"
	"fmt"

	"github.com/chazu/tern/pkg/ast"
)

// ErrUnresolvedOperator is matched by every *UnresolvedOperatorError.
var ErrUnresolvedOperator = errors.New("unresolved operator")

// UnresolvedOperatorError reports an operator applied to operand types that
// have no signature in the environment.
type UnresolvedOperatorError struct {
	Op       string
	Operands []Type
	Expr     ast.ExprID
	Line     int
}

func (e *UnresolvedOperatorError) Error() string {
	var msg string
	switch len(e.Operands) {
	case 1:
		msg = fmt.Sprintf("no operator %s for %s", e.Op, e.Operands[0])
	case 2:
		msg = fmt.Sprintf("no operator %s for %s and %s", e.Op, e.Operands[0], e.Operands[1])
	default:
		msg = fmt.Sprintf("no operator %s", e.Op)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Unwrap lets errors.Is match ErrUnresolvedOperator.
func (e *UnresolvedOperatorError) Unwrap() error { return ErrUnresolvedOperator }

type infixKey struct {
	op          ast.InfixOp
	left, right Type
}

type prefixKey struct {
	op      ast.PrefixOp
	operand Type
}

// Env holds the infix and prefix signature tables. It is built once and
// never modified, so one Env can serve any number of resolvers.
type Env struct {
	infix  map[infixKey]Type
	prefix map[prefixKey]Type
}

// NewEnv builds the default environment: arithmetic closed over each numeric
// type, comparisons of equal numeric types yielding Bool, numeric negation on
// Int64 and Float64, and boolean negation.
func NewEnv() *Env {
	env := &Env{
		infix:  make(map[infixKey]Type),
		prefix: make(map[prefixKey]Type),
	}

	numeric := []Type{Int64, Uint64, Float64}
	for _, t := range numeric {
		for _, op := range []ast.InfixOp{ast.Plus, ast.Minus, ast.Mul, ast.Div} {
			env.infix[infixKey{op, t, t}] = t
		}
		for _, op := range []ast.InfixOp{ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual, ast.Greater, ast.GreaterEqual} {
			env.infix[infixKey{op, t, t}] = Bool
		}
	}

	env.prefix[prefixKey{ast.PrefixMinus, Int64}] = Int64
	env.prefix[prefixKey{ast.PrefixMinus, Float64}] = Float64
	env.prefix[prefixKey{ast.Negate, Bool}] = Bool

	return env
}

// ResolveInfix returns the result type of "left op right".
func (e *Env) ResolveInfix(op ast.InfixOp, left, right Type) (Type, error) {
	if t, ok := e.infix[infixKey{op, left, right}]; ok {
		return t, nil
	}
	return 0, &UnresolvedOperatorError{Op: op.String(), Operands: []Type{left, right}, Expr: -1}
}

// ResolvePrefix returns the result type of "op operand".
func (e *Env) ResolvePrefix(op ast.PrefixOp, operand Type) (Type, error) {
	if t, ok := e.prefix[prefixKey{op, operand}]; ok {
		return t, nil
	}
	return 0, &UnresolvedOperatorError{Op: op.String(), Operands: []Type{operand}, Expr: -1}
}

// InfixCount returns the number of infix signatures.
func (e *Env) InfixCount() int { return len(e.infix) }

// PrefixCount returns the number of prefix signatures.
func (e *Env) PrefixCount() int { return len(e.prefix) }
