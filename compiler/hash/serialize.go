package hash

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/tern/pkg/ast"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a syntax tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers and float bits: big-endian 8B
//   - Booleans and operators: single byte
//   - Block length: uint32 big-endian
//   - Child nodes: serialized inline, depth first
//
// Arena ids are never written and source lines only by SerializeLines, so
// two arenas holding the same tree serialize identically however they were
// built. A child id not below its parent's is rejected.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of the tree rooted
// at root. The returned bytes are suitable for hashing with SHA-256.
func Serialize(arena *ast.Arena, root ast.StmtID) ([]byte, error) {
	return serialize(arena, root, false)
}

// SerializeLines is Serialize with each node prefixed by its source line as
// a big-endian 8B integer.
func SerializeLines(arena *ast.Arena, root ast.StmtID) ([]byte, error) {
	return serialize(arena, root, true)
}

func serialize(arena *ast.Arena, root ast.StmtID, lines bool) ([]byte, error) {
	s := &serializer{arena: arena, buf: make([]byte, 0, 256), lines: lines}
	s.writeByte(HashVersion)
	node, err := arena.Statement(root)
	if err != nil {
		return nil, err
	}
	if err := s.serializeStmt(root, node); err != nil {
		return nil, err
	}
	return s.buf, nil
}

type serializer struct {
	arena *ast.Arena
	buf   []byte
	lines bool
}

// writeLine prefixes a node with its source line when serializing lines.
func (s *serializer) writeLine(node ast.Node) {
	if s.lines {
		s.writeUint64(uint64(node.Pos().Line))
	}
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

func (s *serializer) writeUint64(v uint64) {
	s.buf = binary.BigEndian.AppendUint64(s.buf, v)
}

func (s *serializer) serializeStmt(id ast.StmtID, node ast.Stmt) error {
	s.writeLine(node)
	switch n := node.(type) {
	case ast.ExprStmt:
		s.writeByte(TagExprStmt)
		inner, err := s.arena.Expression(n.Expr)
		if err != nil {
			return err
		}
		return s.serializeExpr(n.Expr, inner)

	case ast.Block:
		s.writeByte(TagBlock)
		s.writeUint32(uint32(len(n.Stmts)))
		for _, child := range n.Stmts {
			inner, err := s.arena.StatementBelow(child, id)
			if err != nil {
				return err
			}
			if err := s.serializeStmt(child, inner); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("statement %d: unhashable node %T", id, node)
}

// serializeChild writes an operand of parent.
func (s *serializer) serializeChild(id, parent ast.ExprID) error {
	node, err := s.arena.ExpressionBelow(id, parent)
	if err != nil {
		return err
	}
	return s.serializeExpr(id, node)
}

func (s *serializer) serializeExpr(id ast.ExprID, node ast.Expr) error {
	s.writeLine(node)
	switch n := node.(type) {
	case ast.Int64Lit:
		s.writeByte(TagInt64Lit)
		s.writeUint64(uint64(n.Value))

	case ast.Uint64Lit:
		s.writeByte(TagUint64Lit)
		s.writeUint64(n.Value)

	case ast.Float64Lit:
		s.writeByte(TagFloat64Lit)
		s.writeUint64(math.Float64bits(n.Value))

	case ast.BoolLit:
		s.writeByte(TagBoolLit)
		if n.Value {
			s.writeByte(1)
		} else {
			s.writeByte(0)
		}

	case ast.UnitLit:
		s.writeByte(TagUnitLit)

	case ast.Infix:
		s.writeByte(TagInfix)
		s.writeByte(byte(n.Op))
		if err := s.serializeChild(n.Left, id); err != nil {
			return err
		}
		return s.serializeChild(n.Right, id)

	case ast.Prefix:
		s.writeByte(TagPrefix)
		s.writeByte(byte(n.Op))
		return s.serializeChild(n.Operand, id)

	default:
		return fmt.Errorf("expression %d: unhashable node %T", id, node)
	}
	return nil
}
