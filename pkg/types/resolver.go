package types

import (
	"errors"
	"fmt"

	"github.com/chazu/tern/pkg/ast"
)

// Resolver computes a TypeMap for a syntax arena.
//
// Resolution is post-order and fail-fast: operands are resolved before the
// node that uses them, and the first unresolved operator aborts the walk. The
// map built so far is discarded on failure.
type Resolver struct {
	env *Env
}

// NewResolver creates a resolver over env. A nil env uses NewEnv().
func NewResolver(env *Env) *Resolver {
	if env == nil {
		env = NewEnv()
	}
	return &Resolver{env: env}
}

// Env returns the signature tables used by the resolver.
func (r *Resolver) Env() *Env { return r.env }

// Resolve types every expression reachable from the root statement.
func (r *Resolver) Resolve(arena *ast.Arena, root ast.StmtID) (TypeMap, error) {
	node, err := arena.Statement(root)
	if err != nil {
		return nil, err
	}
	types := make(TypeMap, arena.ExpressionCount())
	if err := r.resolveStmt(arena, types, root, node); err != nil {
		return nil, err
	}
	return types, nil
}

// ResolveSyntax is Resolve over a syntax unit.
func (r *Resolver) ResolveSyntax(syn *ast.Syntax) (TypeMap, error) {
	return r.Resolve(syn.Arena, syn.Root)
}

// ResolveExpr types the subtree rooted at id, recording into types, and
// returns the type of id itself. Operands must have been appended before the
// node that uses them; a forward reference fails with ast.ErrForwardReference.
func (r *Resolver) ResolveExpr(arena *ast.Arena, id ast.ExprID, types TypeMap) (Type, error) {
	if t, ok := types[id]; ok {
		return t, nil
	}
	node, err := arena.Expression(id)
	if err != nil {
		return 0, err
	}
	return r.resolveNode(arena, types, id, node)
}

func (r *Resolver) resolveOperand(arena *ast.Arena, types TypeMap, id, parent ast.ExprID) (Type, error) {
	node, err := arena.ExpressionBelow(id, parent)
	if err != nil {
		return 0, err
	}
	if t, ok := types[id]; ok {
		return t, nil
	}
	return r.resolveNode(arena, types, id, node)
}

func (r *Resolver) resolveNode(arena *ast.Arena, types TypeMap, id ast.ExprID, node ast.Expr) (Type, error) {
	var t Type
	switch n := node.(type) {
	case ast.Int64Lit:
		t = Int64
	case ast.Uint64Lit:
		t = Uint64
	case ast.Float64Lit:
		t = Float64
	case ast.BoolLit:
		t = Bool
	case ast.UnitLit:
		t = Unit

	case ast.Infix:
		left, err := r.resolveOperand(arena, types, n.Left, id)
		if err != nil {
			return 0, err
		}
		right, err := r.resolveOperand(arena, types, n.Right, id)
		if err != nil {
			return 0, err
		}
		t, err = r.env.ResolveInfix(n.Op, left, right)
		if err != nil {
			return 0, locate(err, id, n.At.Line)
		}

	case ast.Prefix:
		operand, err := r.resolveOperand(arena, types, n.Operand, id)
		if err != nil {
			return 0, err
		}
		t, err = r.env.ResolvePrefix(n.Op, operand)
		if err != nil {
			return 0, locate(err, id, n.At.Line)
		}

	default:
		return 0, fmt.Errorf("expression %d: unexpected node %T", id, node)
	}

	types[id] = t
	return t, nil
}

func (r *Resolver) resolveStmt(arena *ast.Arena, types TypeMap, id ast.StmtID, node ast.Stmt) error {
	switch n := node.(type) {
	case ast.ExprStmt:
		_, err := r.ResolveExpr(arena, n.Expr, types)
		return err
	case ast.Block:
		for _, child := range n.Stmts {
			inner, err := arena.StatementBelow(child, id)
			if err != nil {
				return err
			}
			if err := r.resolveStmt(arena, types, child, inner); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("statement %d: unexpected node %T", id, node)
	}
}

// locate fills in the expression id and line of an environment lookup failure.
func locate(err error, id ast.ExprID, line int) error {
	var unresolved *UnresolvedOperatorError
	if errors.As(err, &unresolved) {
		unresolved.Expr = id
		unresolved.Line = line
	}
	return err
}
