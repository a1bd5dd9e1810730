package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags the scalar held by a Value.
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt64
	KindUint64
	KindFloat64
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindInt64:
		return "Int64"
	case KindUint64:
		return "Uint64"
	case KindFloat64:
		return "Float64"
	case KindBool:
		return "Bool"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a tagged scalar. It holds no references and is copied freely.
// The zero Value is Unit.
type Value struct {
	kind Kind
	bits uint64
}

// Int64Value wraps a signed integer.
func Int64Value(v int64) Value { return Value{kind: KindInt64, bits: uint64(v)} }

// Uint64Value wraps an unsigned integer.
func Uint64Value(v uint64) Value { return Value{kind: KindUint64, bits: v} }

// Float64Value wraps a float.
func Float64Value(v float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(v)} }

// BoolValue wraps a boolean.
func BoolValue(v bool) Value {
	if v {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

// UnitValue returns the unit value.
func UnitValue() Value { return Value{kind: KindUnit} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Bits returns the raw 64-bit payload. Together with Kind it identifies the
// value exactly, including float NaN payloads.
func (v Value) Bits() uint64 { return v.bits }

// FromBits rebuilds a value from its tag and raw payload.
func FromBits(k Kind, bits uint64) (Value, error) {
	switch k {
	case KindUnit:
		return Value{}, nil
	case KindBool:
		if bits > 1 {
			return Value{}, fmt.Errorf("invalid Bool payload %d", bits)
		}
	case KindInt64, KindUint64, KindFloat64:
	default:
		return Value{}, fmt.Errorf("invalid value kind %d", k)
	}
	return Value{kind: k, bits: bits}, nil
}

// AsInt64 returns the integer and whether v is an Int64.
func (v Value) AsInt64() (int64, bool) { return int64(v.bits), v.kind == KindInt64 }

// AsUint64 returns the integer and whether v is a Uint64.
func (v Value) AsUint64() (uint64, bool) { return v.bits, v.kind == KindUint64 }

// AsFloat64 returns the float and whether v is a Float64.
func (v Value) AsFloat64() (float64, bool) {
	return math.Float64frombits(v.bits), v.kind == KindFloat64
}

// AsBool returns the boolean and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.bits != 0, v.kind == KindBool }

// String renders the value with a type suffix: 5i64, 7u64, 2.5f64, true, ().
func (v Value) String() string {
	switch v.kind {
	case KindInt64:
		return strconv.FormatInt(int64(v.bits), 10) + "i64"
	case KindUint64:
		return strconv.FormatUint(v.bits, 10) + "u64"
	case KindFloat64:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64) + "f64"
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	default:
		return "()"
	}
}
