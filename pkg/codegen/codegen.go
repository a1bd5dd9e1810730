// Package codegen lowers a type-resolved syntax arena to bytecode.
//
// Every expression leaves exactly one value on the operand stack. Operators
// are selected by the resolved type of their operands, never by the result
// type, because comparisons of every numeric type share the Bool result.
package codegen

import (
	"errors"
	"fmt"

	"github.com/chazu/tern/pkg/ast"
	"github.com/chazu/tern/pkg/bytecode"
	"github.com/chazu/tern/pkg/types"
)

// EntryName is the name of the function a compiled program starts in.
const EntryName = "main"

var (
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrPrefixPlus reports a unary + node. Tree construction elides it, so
	// seeing one here means the arena was built incorrectly.
	ErrPrefixPlus = errors.New("unary + reached code generation")

	// ErrMissingType reports an expression absent from the type map.
	ErrMissingType = errors.New("expression has no resolved type")
)

// UnsupportedError reports an operator with no instruction for its operand type.
type UnsupportedError struct {
	Op   string
	Type types.Type
	Line int
}

func (e *UnsupportedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: no instruction for %s on %s", e.Line, e.Op, e.Type)
	}
	return fmt.Sprintf("no instruction for %s on %s", e.Op, e.Type)
}

// Unwrap lets errors.Is match ErrUnsupported.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// InternalError reports an arena or type map that the resolver could not
// have produced.
type InternalError struct {
	Expr ast.ExprID
	Line int
	Err  error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at expression %d (line %d): %v", e.Expr, e.Line, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

type selection struct {
	op      ast.InfixOp
	operand types.Type
}

// Generator holds the instruction selection table. It has no per-compile
// state, so one Generator may compile any number of programs.
type Generator struct {
	infix map[selection]bytecode.Opcode
	mul   map[types.Type]bytecode.Opcode
}

// New builds a generator with the default instruction selection.
func New() *Generator {
	g := &Generator{
		infix: make(map[selection]bytecode.Opcode),
		mul:   make(map[types.Type]bytecode.Opcode),
	}

	rows := []struct {
		t   types.Type
		ops [10]bytecode.Opcode
	}{
		{types.Int64, [10]bytecode.Opcode{
			bytecode.OpI64Add, bytecode.OpI64Sub, bytecode.OpI64Mul, bytecode.OpI64Div,
			bytecode.OpI64Eq, bytecode.OpI64Ne, bytecode.OpI64Lt, bytecode.OpI64Le, bytecode.OpI64Gt, bytecode.OpI64Ge,
		}},
		{types.Uint64, [10]bytecode.Opcode{
			bytecode.OpU64Add, bytecode.OpU64Sub, bytecode.OpU64Mul, bytecode.OpU64Div,
			bytecode.OpU64Eq, bytecode.OpU64Ne, bytecode.OpU64Lt, bytecode.OpU64Le, bytecode.OpU64Gt, bytecode.OpU64Ge,
		}},
		{types.Float64, [10]bytecode.Opcode{
			bytecode.OpF64Add, bytecode.OpF64Sub, bytecode.OpF64Mul, bytecode.OpF64Div,
			bytecode.OpF64Eq, bytecode.OpF64Ne, bytecode.OpF64Lt, bytecode.OpF64Le, bytecode.OpF64Gt, bytecode.OpF64Ge,
		}},
	}
	// Column order of each row.
	order := [10]ast.InfixOp{
		ast.Plus, ast.Minus, ast.Mul, ast.Div,
		ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual, ast.Greater, ast.GreaterEqual,
	}
	for _, row := range rows {
		for i, op := range order {
			g.infix[selection{op, row.t}] = row.ops[i]
		}
		g.mul[row.t] = row.ops[2]
	}
	return g
}

// SelectInfix returns the instruction for op applied to two operands of type t.
func (g *Generator) SelectInfix(op ast.InfixOp, t types.Type) (bytecode.Opcode, error) {
	if code, ok := g.infix[selection{op, t}]; ok {
		return code, nil
	}
	return 0, &UnsupportedError{Op: op.String(), Type: t}
}

// CompileExpression emits code leaving the value of expression id on the stack.
func (g *Generator) CompileExpression(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.ExprID) error {
	node, err := arena.Expression(id)
	if err != nil {
		return &InternalError{Expr: id, Err: err}
	}
	return g.compileNode(arena, tm, chunk, id, node)
}

// compileOperand compiles a child of parent, which must have been appended
// before it.
func (g *Generator) compileOperand(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id, parent ast.ExprID, line int) error {
	node, err := arena.ExpressionBelow(id, parent)
	if err != nil {
		return &InternalError{Expr: id, Line: line, Err: err}
	}
	return g.compileNode(arena, tm, chunk, id, node)
}

func (g *Generator) compileNode(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.ExprID, node ast.Expr) error {
	var err error
	line := node.Pos().Line

	switch n := node.(type) {
	case ast.Int64Lit:
		_, err = chunk.AddConst(bytecode.Int64Value(n.Value), line)
	case ast.Uint64Lit:
		_, err = chunk.AddConst(bytecode.Uint64Value(n.Value), line)
	case ast.Float64Lit:
		_, err = chunk.AddConst(bytecode.Float64Value(n.Value), line)
	case ast.BoolLit:
		if n.Value {
			chunk.AddInstruction(bytecode.OpTrue, line)
		} else {
			chunk.AddInstruction(bytecode.OpFalse, line)
		}
	case ast.UnitLit:
		_, err = chunk.AddConst(bytecode.UnitValue(), line)
	case ast.Infix:
		err = g.compileInfix(arena, tm, chunk, id, n)
	case ast.Prefix:
		err = g.compilePrefix(arena, tm, chunk, id, n)
	default:
		err = &InternalError{Expr: id, Line: line, Err: fmt.Errorf("unknown expression node %T", node)}
	}
	return err
}

func (g *Generator) compileInfix(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.ExprID, n ast.Infix) error {
	operand, ok := tm[n.Left]
	if !ok {
		return &InternalError{Expr: n.Left, Line: n.At.Line, Err: ErrMissingType}
	}
	right, ok := tm[n.Right]
	if !ok {
		return &InternalError{Expr: n.Right, Line: n.At.Line, Err: ErrMissingType}
	}
	if right != operand {
		return &InternalError{Expr: n.Right, Line: n.At.Line,
			Err: fmt.Errorf("operands of %s resolved to %s and %s", n.Op, operand, right)}
	}
	code, ok := g.infix[selection{n.Op, operand}]
	if !ok {
		return &UnsupportedError{Op: n.Op.String(), Type: operand, Line: n.At.Line}
	}

	if err := g.compileOperand(arena, tm, chunk, n.Left, id, n.At.Line); err != nil {
		return err
	}
	if err := g.compileOperand(arena, tm, chunk, n.Right, id, n.At.Line); err != nil {
		return err
	}
	chunk.AddInstruction(code, n.At.Line)
	return nil
}

func (g *Generator) compilePrefix(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.ExprID, n ast.Prefix) error {
	line := n.At.Line
	operand, ok := tm[n.Operand]
	if !ok {
		return &InternalError{Expr: n.Operand, Line: line, Err: ErrMissingType}
	}

	switch n.Op {
	case ast.PrefixPlus:
		return &InternalError{Expr: id, Line: line, Err: ErrPrefixPlus}

	case ast.PrefixMinus:
		// -x is lowered to x * -1 of the same type.
		var minusOne bytecode.Value
		switch operand {
		case types.Int64:
			minusOne = bytecode.Int64Value(-1)
		case types.Float64:
			minusOne = bytecode.Float64Value(-1)
		default:
			return &UnsupportedError{Op: n.Op.String(), Type: operand, Line: line}
		}
		if err := g.compileOperand(arena, tm, chunk, n.Operand, id, line); err != nil {
			return err
		}
		if _, err := chunk.AddConst(minusOne, line); err != nil {
			return err
		}
		chunk.AddInstruction(g.mul[operand], line)
		return nil

	case ast.Negate:
		if operand != types.Bool {
			return &UnsupportedError{Op: n.Op.String(), Type: operand, Line: line}
		}
		if err := g.compileOperand(arena, tm, chunk, n.Operand, id, line); err != nil {
			return err
		}
		chunk.AddInstruction(bytecode.OpBoolNot, line)
		return nil
	}

	return &UnsupportedError{Op: n.Op.String(), Type: operand, Line: line}
}

// CompileStatement emits code for a statement. Statements leave the stack as
// they found it: an expression statement pops its value.
func (g *Generator) CompileStatement(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.StmtID) error {
	node, err := arena.Statement(id)
	if err != nil {
		return &InternalError{Expr: -1, Err: err}
	}
	return g.compileStmt(arena, tm, chunk, id, node)
}

func (g *Generator) compileStmt(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.StmtID, node ast.Stmt) error {
	switch n := node.(type) {
	case ast.ExprStmt:
		if err := g.CompileExpression(arena, tm, chunk, n.Expr); err != nil {
			return err
		}
		chunk.AddInstruction(bytecode.OpPop, n.At.Line)
	case ast.Block:
		for _, child := range n.Stmts {
			inner, err := arena.StatementBelow(child, id)
			if err != nil {
				return &InternalError{Expr: -1, Line: n.At.Line, Err: err}
			}
			if err := g.compileStmt(arena, tm, chunk, child, inner); err != nil {
				return err
			}
		}
	default:
		return &InternalError{Expr: -1, Line: node.Pos().Line, Err: fmt.Errorf("unknown statement node %T", node)}
	}
	return nil
}

// CompileTail emits code for the statement whose value is the program's
// result. An expression statement keeps its value, a block runs all but its
// last child as statements and recurses into the last, and an empty block
// pushes unit.
func (g *Generator) CompileTail(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.StmtID) error {
	node, err := arena.Statement(id)
	if err != nil {
		return &InternalError{Expr: -1, Err: err}
	}
	return g.compileTail(arena, tm, chunk, id, node)
}

func (g *Generator) compileTail(arena *ast.Arena, tm types.TypeMap, chunk *bytecode.Chunk, id ast.StmtID, node ast.Stmt) error {
	switch n := node.(type) {
	case ast.ExprStmt:
		return g.CompileExpression(arena, tm, chunk, n.Expr)
	case ast.Block:
		if len(n.Stmts) == 0 {
			_, err := chunk.AddConst(bytecode.UnitValue(), n.At.Line)
			return err
		}
		children := make([]ast.Stmt, len(n.Stmts))
		for i, child := range n.Stmts {
			inner, err := arena.StatementBelow(child, id)
			if err != nil {
				return &InternalError{Expr: -1, Line: n.At.Line, Err: err}
			}
			children[i] = inner
		}
		last := len(n.Stmts) - 1
		for i, child := range n.Stmts[:last] {
			if err := g.compileStmt(arena, tm, chunk, child, children[i]); err != nil {
				return err
			}
		}
		return g.compileTail(arena, tm, chunk, n.Stmts[last], children[last])
	default:
		return &InternalError{Expr: -1, Line: node.Pos().Line, Err: fmt.Errorf("unknown statement node %T", node)}
	}
}

// CompileProgram compiles the syntax unit's root into a single entry
// function of arity zero that returns the root's value.
func (g *Generator) CompileProgram(syn *ast.Syntax, tm types.TypeMap) (*bytecode.Program, error) {
	root, err := syn.Arena.Statement(syn.Root)
	if err != nil {
		return nil, &InternalError{Expr: -1, Err: err}
	}

	fn := bytecode.NewFunction(EntryName, 0)
	if err := g.CompileTail(syn.Arena, tm, fn.Chunk, syn.Root); err != nil {
		return nil, err
	}
	fn.Chunk.AddInstruction(bytecode.OpReturn, root.Pos().Line)

	prog := bytecode.NewProgram()
	if _, err := prog.AddFunction(fn); err != nil {
		return nil, err
	}
	return prog, nil
}
