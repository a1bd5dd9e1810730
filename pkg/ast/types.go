// Package ast defines the syntax arena consumed by the type resolver and
// code generator. A parser appends nodes through the Arena builder methods
// and designates a root statement; everything downstream reads it.
package ast

import "fmt"

// ---------------------------------------------------------------------------
// Identifiers and positions
// ---------------------------------------------------------------------------

// ExprID addresses an expression node inside one Arena.
type ExprID int

// StmtID addresses a statement node inside one Arena.
type StmtID int

// Position is a source location carried by every node.
type Position struct {
	Line   int // 1-based line number, 0 if unknown
	Offset int // byte offset
}

// Node is implemented by all expression and statement nodes.
type Node interface {
	Pos() Position
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// InfixOp is a binary operator.
type InfixOp uint8

const (
	Plus InfixOp = iota
	Minus
	Mul
	Div
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
)

var infixNames = [...]string{
	Plus:         "+",
	Minus:        "-",
	Mul:          "*",
	Div:          "/",
	Equal:        "==",
	NotEqual:     "!=",
	Less:         "<",
	LessEqual:    "<=",
	Greater:      ">",
	GreaterEqual: ">=",
}

func (op InfixOp) String() string {
	if int(op) < len(infixNames) {
		return infixNames[op]
	}
	return fmt.Sprintf("InfixOp(%d)", op)
}

// IsComparison reports whether op produces a Bool from two operands.
func (op InfixOp) IsComparison() bool {
	return op >= Equal && op <= GreaterEqual
}

// InfixOps returns every infix operator.
func InfixOps() []InfixOp {
	return []InfixOp{Plus, Minus, Mul, Div, Equal, NotEqual, Less, LessEqual, Greater, GreaterEqual}
}

// PrefixOp is a unary operator.
type PrefixOp uint8

const (
	// PrefixPlus is elided by the parser and never reaches the back end.
	PrefixPlus PrefixOp = iota
	PrefixMinus
	Negate
)

func (op PrefixOp) String() string {
	switch op {
	case PrefixPlus:
		return "unary +"
	case PrefixMinus:
		return "unary -"
	case Negate:
		return "!"
	default:
		return fmt.Sprintf("PrefixOp(%d)", op)
	}
}

// PrefixOps returns every prefix operator.
func PrefixOps() []PrefixOp {
	return []PrefixOp{PrefixPlus, PrefixMinus, Negate}
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. Nodes are stored by value, so
// an Expr obtained from the arena cannot change the arena's copy.
type Expr interface {
	Node
	expr() // marker method
}

// Int64Lit is a signed 64-bit integer literal.
type Int64Lit struct {
	At    Position
	Value int64
}

func (n Int64Lit) Pos() Position { return n.At }
func (n Int64Lit) expr()         {}

// Uint64Lit is an unsigned 64-bit integer literal.
type Uint64Lit struct {
	At    Position
	Value uint64
}

func (n Uint64Lit) Pos() Position { return n.At }
func (n Uint64Lit) expr()         {}

// Float64Lit is a 64-bit floating point literal.
type Float64Lit struct {
	At    Position
	Value float64
}

func (n Float64Lit) Pos() Position { return n.At }
func (n Float64Lit) expr()         {}

// BoolLit is true or false.
type BoolLit struct {
	At    Position
	Value bool
}

func (n BoolLit) Pos() Position { return n.At }
func (n BoolLit) expr()         {}

// UnitLit is the unit value ().
type UnitLit struct {
	At Position
}

func (n UnitLit) Pos() Position { return n.At }
func (n UnitLit) expr()         {}

// Infix represents "Left Op Right".
type Infix struct {
	At    Position
	Op    InfixOp
	Left  ExprID
	Right ExprID
}

func (n Infix) Pos() Position { return n.At }
func (n Infix) expr()         {}

// Prefix represents "Op Operand".
type Prefix struct {
	At      Position
	Op      PrefixOp
	Operand ExprID
}

func (n Prefix) Pos() Position { return n.At }
func (n Prefix) expr()         {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	At   Position
	Expr ExprID
}

func (n ExprStmt) Pos() Position { return n.At }
func (n ExprStmt) stmt()         {}

// Block is an ordered sequence of statements.
type Block struct {
	At    Position
	Stmts []StmtID
}

func (n Block) Pos() Position { return n.At }
func (n Block) stmt()         {}

// Syntax is one parsed unit: the arena plus its designated root statement.
type Syntax struct {
	Arena *Arena
	Root  StmtID
}

// NewSyntax pairs an arena with its current root.
func NewSyntax(a *Arena) *Syntax {
	return &Syntax{Arena: a, Root: a.Root()}
}
