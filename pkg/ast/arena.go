package ast

import (
	"errors"
	"fmt"
)

// ErrUnknownNode is returned when an id does not address a node in the arena.
var ErrUnknownNode = errors.New("unknown node id")

// ErrForwardReference is returned when a node refers to a node that was
// appended after it. Children are always built before their parents, so a
// well-formed arena has no cycles.
var ErrForwardReference = errors.New("forward node reference")

// Arena owns every node of a syntax unit. It only grows: ids handed out by the
// builder methods stay valid for the arena's lifetime and are never reused.
type Arena struct {
	exprs []Expr
	stmts []Stmt
	root  StmtID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		exprs: make([]Expr, 0, 32),
		stmts: make([]Stmt, 0, 8),
	}
}

// Expression returns the expression node with the given id.
func (a *Arena) Expression(id ExprID) (Expr, error) {
	if id < 0 || int(id) >= len(a.exprs) {
		return nil, fmt.Errorf("expression %d: %w", id, ErrUnknownNode)
	}
	return a.exprs[id], nil
}

// Statement returns the statement node with the given id.
func (a *Arena) Statement(id StmtID) (Stmt, error) {
	if id < 0 || int(id) >= len(a.stmts) {
		return nil, fmt.Errorf("statement %d: %w", id, ErrUnknownNode)
	}
	return a.stmts[id], nil
}

// ExpressionBelow returns the expression node with the given id, which must
// have been appended before bound. Walkers pass the parent's id as bound when
// following a child edge, and ExpressionCount at the top level.
func (a *Arena) ExpressionBelow(id, bound ExprID) (Expr, error) {
	if id >= 0 && id >= bound {
		return nil, fmt.Errorf("expression %d referenced from %d: %w", id, bound, ErrForwardReference)
	}
	return a.Expression(id)
}

// StatementBelow is ExpressionBelow for statements.
func (a *Arena) StatementBelow(id, bound StmtID) (Stmt, error) {
	if id >= 0 && id >= bound {
		return nil, fmt.Errorf("statement %d referenced from %d: %w", id, bound, ErrForwardReference)
	}
	return a.Statement(id)
}

// Root returns the designated root statement.
func (a *Arena) Root() StmtID { return a.root }

// SetRoot designates the root statement.
func (a *Arena) SetRoot(id StmtID) { a.root = id }

// ExpressionCount returns the number of expression nodes.
func (a *Arena) ExpressionCount() int { return len(a.exprs) }

// StatementCount returns the number of statement nodes.
func (a *Arena) StatementCount() int { return len(a.stmts) }

func (a *Arena) pushExpr(e Expr) ExprID {
	id := ExprID(len(a.exprs))
	a.exprs = append(a.exprs, e)
	return id
}

func (a *Arena) pushStmt(s Stmt) StmtID {
	id := StmtID(len(a.stmts))
	a.stmts = append(a.stmts, s)
	return id
}

// Int64 appends a signed integer literal.
func (a *Arena) Int64(v int64, at Position) ExprID {
	return a.pushExpr(Int64Lit{At: at, Value: v})
}

// Uint64 appends an unsigned integer literal.
func (a *Arena) Uint64(v uint64, at Position) ExprID {
	return a.pushExpr(Uint64Lit{At: at, Value: v})
}

// Float64 appends a float literal.
func (a *Arena) Float64(v float64, at Position) ExprID {
	return a.pushExpr(Float64Lit{At: at, Value: v})
}

// Bool appends a boolean literal.
func (a *Arena) Bool(v bool, at Position) ExprID {
	return a.pushExpr(BoolLit{At: at, Value: v})
}

// Unit appends a unit literal.
func (a *Arena) Unit(at Position) ExprID {
	return a.pushExpr(UnitLit{At: at})
}

// Infix appends a binary node over two existing expressions. Ids that do
// not exist yet are stored as given and rejected by every walker.
func (a *Arena) Infix(op InfixOp, left, right ExprID, at Position) ExprID {
	return a.pushExpr(Infix{At: at, Op: op, Left: left, Right: right})
}

// Prefix appends a unary node over an existing expression.
func (a *Arena) Prefix(op PrefixOp, operand ExprID, at Position) ExprID {
	return a.pushExpr(Prefix{At: at, Op: op, Operand: operand})
}

// ExprStmt appends an expression statement.
func (a *Arena) ExprStmt(e ExprID, at Position) StmtID {
	return a.pushStmt(ExprStmt{At: at, Expr: e})
}

// Block appends a block statement. The id slice is copied.
func (a *Arena) Block(stmts []StmtID, at Position) StmtID {
	owned := make([]StmtID, len(stmts))
	copy(owned, stmts)
	return a.pushStmt(Block{At: at, Stmts: owned})
}

// Line is shorthand for a Position carrying only a line number.
func Line(n int) Position {
	return Position{Line: n}
}
