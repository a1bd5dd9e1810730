package vm

import (
	"github.com/chazu/tern/pkg/bytecode"
)

// binaryOps are the typed arithmetic and comparison opcodes.
var binaryOps = map[bytecode.Opcode]bool{}

func init() {
	for _, op := range []bytecode.Opcode{
		bytecode.OpI64Add, bytecode.OpI64Sub, bytecode.OpI64Mul, bytecode.OpI64Div,
		bytecode.OpU64Add, bytecode.OpU64Sub, bytecode.OpU64Mul, bytecode.OpU64Div,
		bytecode.OpF64Add, bytecode.OpF64Sub, bytecode.OpF64Mul, bytecode.OpF64Div,
		bytecode.OpI64Eq, bytecode.OpI64Ne, bytecode.OpI64Lt, bytecode.OpI64Le, bytecode.OpI64Gt, bytecode.OpI64Ge,
		bytecode.OpU64Eq, bytecode.OpU64Ne, bytecode.OpU64Lt, bytecode.OpU64Le, bytecode.OpU64Gt, bytecode.OpU64Ge,
		bytecode.OpF64Eq, bytecode.OpF64Ne, bytecode.OpF64Lt, bytecode.OpF64Le, bytecode.OpF64Gt, bytecode.OpF64Ge,
	} {
		binaryOps[op] = true
	}
}

// binary applies a typed arithmetic or comparison opcode. Both operands must
// carry the opcode's kind.
func binary(op bytecode.Opcode, left, right bytecode.Value) (bytecode.Value, *RuntimeError) {
	switch op {
	case bytecode.OpI64Add, bytecode.OpI64Sub, bytecode.OpI64Mul, bytecode.OpI64Div,
		bytecode.OpI64Eq, bytecode.OpI64Ne, bytecode.OpI64Lt, bytecode.OpI64Le, bytecode.OpI64Gt, bytecode.OpI64Ge:
		a, aok := left.AsInt64()
		b, bok := right.AsInt64()
		if !aok || !bok {
			return mismatch(op, bytecode.KindInt64, left, right)
		}
		return int64Op(op, a, b)

	case bytecode.OpU64Add, bytecode.OpU64Sub, bytecode.OpU64Mul, bytecode.OpU64Div,
		bytecode.OpU64Eq, bytecode.OpU64Ne, bytecode.OpU64Lt, bytecode.OpU64Le, bytecode.OpU64Gt, bytecode.OpU64Ge:
		a, aok := left.AsUint64()
		b, bok := right.AsUint64()
		if !aok || !bok {
			return mismatch(op, bytecode.KindUint64, left, right)
		}
		return uint64Op(op, a, b)

	default:
		a, aok := left.AsFloat64()
		b, bok := right.AsFloat64()
		if !aok || !bok {
			return mismatch(op, bytecode.KindFloat64, left, right)
		}
		return float64Op(op, a, b)
	}
}

func mismatch(op bytecode.Opcode, want bytecode.Kind, left, right bytecode.Value) (bytecode.Value, *RuntimeError) {
	return bytecode.Value{}, fault(ErrTypeMismatch, "%s wants %s operands, got %s and %s", op, want, left.Kind(), right.Kind())
}

func int64Op(op bytecode.Opcode, a, b int64) (bytecode.Value, *RuntimeError) {
	switch op {
	case bytecode.OpI64Add:
		return bytecode.Int64Value(a + b), nil
	case bytecode.OpI64Sub:
		return bytecode.Int64Value(a - b), nil
	case bytecode.OpI64Mul:
		return bytecode.Int64Value(a * b), nil
	case bytecode.OpI64Div:
		if b == 0 {
			return bytecode.Value{}, fault(ErrDivisionByZero, "%d / 0", a)
		}
		return bytecode.Int64Value(a / b), nil
	}
	return bytecode.BoolValue(compare(op, a, b)), nil
}

func uint64Op(op bytecode.Opcode, a, b uint64) (bytecode.Value, *RuntimeError) {
	switch op {
	case bytecode.OpU64Add:
		return bytecode.Uint64Value(a + b), nil
	case bytecode.OpU64Sub:
		return bytecode.Uint64Value(a - b), nil
	case bytecode.OpU64Mul:
		return bytecode.Uint64Value(a * b), nil
	case bytecode.OpU64Div:
		if b == 0 {
			return bytecode.Value{}, fault(ErrDivisionByZero, "%d / 0", a)
		}
		return bytecode.Uint64Value(a / b), nil
	}
	return bytecode.BoolValue(compare(op, a, b)), nil
}

func float64Op(op bytecode.Opcode, a, b float64) (bytecode.Value, *RuntimeError) {
	switch op {
	case bytecode.OpF64Add:
		return bytecode.Float64Value(a + b), nil
	case bytecode.OpF64Sub:
		return bytecode.Float64Value(a - b), nil
	case bytecode.OpF64Mul:
		return bytecode.Float64Value(a * b), nil
	case bytecode.OpF64Div:
		return bytecode.Float64Value(a / b), nil
	}
	return bytecode.BoolValue(compare(op, a, b)), nil
}

// compare maps each comparison opcode to its relation. Every relation is
// applied directly so NaN compares false except under !=.
func compare[T int64 | uint64 | float64](op bytecode.Opcode, a, b T) bool {
	switch op {
	case bytecode.OpI64Eq, bytecode.OpU64Eq, bytecode.OpF64Eq:
		return a == b
	case bytecode.OpI64Ne, bytecode.OpU64Ne, bytecode.OpF64Ne:
		return a != b
	case bytecode.OpI64Lt, bytecode.OpU64Lt, bytecode.OpF64Lt:
		return a < b
	case bytecode.OpI64Le, bytecode.OpU64Le, bytecode.OpF64Le:
		return a <= b
	case bytecode.OpI64Gt, bytecode.OpU64Gt, bytecode.OpF64Gt:
		return a > b
	default:
		return a >= b
	}
}
