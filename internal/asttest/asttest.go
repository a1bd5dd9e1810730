// Package asttest builds syntax arenas for tests: small hand-written fixtures
// and random well-typed expressions driven by a stream of choices, together
// with the value native Go arithmetic gives for them.
package asttest

import (
	"github.com/chazu/tern/pkg/ast"
	"github.com/chazu/tern/pkg/types"
)

// Expect is the natively computed result of a generated expression.
type Expect struct {
	Type      types.Type
	Int       int64
	Uint      uint64
	Float     float64
	Bool      bool
	DivByZero bool // an integer division by zero occurs somewhere in the tree
}

// Single wraps one expression as the root statement of its arena.
func Single(a *ast.Arena, e ast.ExprID) *ast.Syntax {
	node, _ := a.Expression(e)
	a.SetRoot(a.ExprStmt(e, node.Pos()))
	return ast.NewSyntax(a)
}

// Generator builds expressions from a slice of choices. Once the choices are
// used up every decision takes its first option, so any slice terminates.
type Generator struct {
	arena    *ast.Arena
	choices  []int
	pos      int
	maxDepth int
	line     int
}

// NewGenerator creates a generator over choices with a depth bound.
func NewGenerator(choices []int, maxDepth int) *Generator {
	return &Generator{arena: ast.NewArena(), choices: choices, maxDepth: maxDepth, line: 1}
}

// Arena returns the arena being built.
func (g *Generator) Arena() *ast.Arena { return g.arena }

func (g *Generator) pick(n int) int {
	if g.pos >= len(g.choices) || n <= 1 {
		return 0
	}
	v := g.choices[g.pos]
	g.pos++
	if v < 0 {
		v = -v
	}
	return v % n
}

func (g *Generator) at() ast.Position {
	g.line++
	return ast.Line(g.line)
}

// Build generates a well-typed expression of type t and wraps it as a syntax
// unit. Unit is not generated; asking for it yields an Int64 expression.
func (g *Generator) Build(t types.Type) (*ast.Syntax, Expect) {
	id, want := g.Expr(t, 0)
	return Single(g.arena, id), want
}

// Expr generates a well-typed expression of type t.
func (g *Generator) Expr(t types.Type, depth int) (ast.ExprID, Expect) {
	leaf := depth >= g.maxDepth || g.pick(3) == 0
	switch t {
	case types.Bool:
		return g.boolExpr(leaf, depth)
	case types.Uint64, types.Float64:
		return g.numericExpr(t, leaf, depth)
	default:
		return g.numericExpr(types.Int64, leaf, depth)
	}
}

func (g *Generator) literal(t types.Type) (ast.ExprID, Expect) {
	raw := g.pick(41)
	switch t {
	case types.Uint64:
		v := uint64(raw)
		return g.arena.Uint64(v, g.at()), Expect{Type: t, Uint: v}
	case types.Float64:
		v := float64(raw-20) / 4
		return g.arena.Float64(v, g.at()), Expect{Type: t, Float: v}
	case types.Bool:
		v := raw%2 == 1
		return g.arena.Bool(v, g.at()), Expect{Type: t, Bool: v}
	default:
		v := int64(raw - 20)
		return g.arena.Int64(v, g.at()), Expect{Type: types.Int64, Int: v}
	}
}

func (g *Generator) numericExpr(t types.Type, leaf bool, depth int) (ast.ExprID, Expect) {
	if leaf {
		return g.literal(t)
	}

	// Unary minus is only typed for Int64 and Float64.
	if t != types.Uint64 && g.pick(4) == 0 {
		operand, inner := g.Expr(t, depth+1)
		id := g.arena.Prefix(ast.PrefixMinus, operand, g.at())
		want := inner
		want.Int = -inner.Int
		want.Float = -inner.Float
		return id, want
	}

	op := []ast.InfixOp{ast.Plus, ast.Minus, ast.Mul, ast.Div}[g.pick(4)]
	left, lw := g.Expr(t, depth+1)
	right, rw := g.Expr(t, depth+1)
	id := g.arena.Infix(op, left, right, g.at())
	return id, arith(op, t, lw, rw)
}

func (g *Generator) boolExpr(leaf bool, depth int) (ast.ExprID, Expect) {
	if leaf {
		return g.literal(types.Bool)
	}

	if g.pick(3) == 0 {
		operand, inner := g.Expr(types.Bool, depth+1)
		id := g.arena.Prefix(ast.Negate, operand, g.at())
		inner.Bool = !inner.Bool
		return id, inner
	}

	operandType := []types.Type{types.Int64, types.Uint64, types.Float64}[g.pick(3)]
	op := []ast.InfixOp{ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual, ast.Greater, ast.GreaterEqual}[g.pick(6)]
	left, lw := g.Expr(operandType, depth+1)
	right, rw := g.Expr(operandType, depth+1)
	id := g.arena.Infix(op, left, right, g.at())
	return id, compare(op, operandType, lw, rw)
}

func arith(op ast.InfixOp, t types.Type, l, r Expect) Expect {
	out := Expect{Type: t, DivByZero: l.DivByZero || r.DivByZero}
	switch t {
	case types.Int64:
		switch op {
		case ast.Plus:
			out.Int = l.Int + r.Int
		case ast.Minus:
			out.Int = l.Int - r.Int
		case ast.Mul:
			out.Int = l.Int * r.Int
		case ast.Div:
			if r.Int == 0 {
				out.DivByZero = true
			} else {
				out.Int = l.Int / r.Int
			}
		}
	case types.Uint64:
		switch op {
		case ast.Plus:
			out.Uint = l.Uint + r.Uint
		case ast.Minus:
			out.Uint = l.Uint - r.Uint
		case ast.Mul:
			out.Uint = l.Uint * r.Uint
		case ast.Div:
			if r.Uint == 0 {
				out.DivByZero = true
			} else {
				out.Uint = l.Uint / r.Uint
			}
		}
	case types.Float64:
		switch op {
		case ast.Plus:
			out.Float = float64(l.Float + r.Float)
		case ast.Minus:
			out.Float = float64(l.Float - r.Float)
		case ast.Mul:
			out.Float = float64(l.Float * r.Float)
		case ast.Div:
			out.Float = float64(l.Float / r.Float)
		}
	}
	return out
}

func compare(op ast.InfixOp, t types.Type, l, r Expect) Expect {
	out := Expect{Type: types.Bool, DivByZero: l.DivByZero || r.DivByZero}
	switch t {
	case types.Int64:
		out.Bool = ordered(op, l.Int, r.Int)
	case types.Uint64:
		out.Bool = ordered(op, l.Uint, r.Uint)
	case types.Float64:
		out.Bool = ordered(op, l.Float, r.Float)
	}
	return out
}

func ordered[T int64 | uint64 | float64](op ast.InfixOp, a, b T) bool {
	switch op {
	case ast.Equal:
		return a == b
	case ast.NotEqual:
		return a != b
	case ast.Less:
		return a < b
	case ast.LessEqual:
		return a <= b
	case ast.Greater:
		return a > b
	case ast.GreaterEqual:
		return a >= b
	}
	return false
}
