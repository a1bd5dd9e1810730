package bytecode

import (
	"math"
	"testing"
)

func TestValueAccessors(t *testing.T) {
	if v, ok := Int64Value(-5).AsInt64(); !ok || v != -5 {
		t.Errorf("AsInt64 = %d, %v", v, ok)
	}
	if _, ok := Int64Value(-5).AsUint64(); ok {
		t.Error("Int64 value reported as Uint64")
	}
	if v, ok := Uint64Value(math.MaxUint64).AsUint64(); !ok || v != math.MaxUint64 {
		t.Errorf("AsUint64 = %d, %v", v, ok)
	}
	if v, ok := Float64Value(2.5).AsFloat64(); !ok || v != 2.5 {
		t.Errorf("AsFloat64 = %g, %v", v, ok)
	}
	if v, ok := BoolValue(true).AsBool(); !ok || !v {
		t.Errorf("AsBool = %v, %v", v, ok)
	}
	if v, ok := BoolValue(false).AsBool(); !ok || v {
		t.Errorf("AsBool = %v, %v", v, ok)
	}
	if (Value{}).Kind() != KindUnit {
		t.Errorf("zero Value kind = %s, want Unit", (Value{}).Kind())
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int64Value(5), "5i64"},
		{Int64Value(-1), "-1i64"},
		{Uint64Value(7), "7u64"},
		{Float64Value(2.5), "2.5f64"},
		{Float64Value(-1), "-1f64"},
		{BoolValue(true), "true"},
		{UnitValue(), "()"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromBits(t *testing.T) {
	for _, v := range []Value{Int64Value(-9), Uint64Value(9), Float64Value(math.Inf(-1)), BoolValue(true), UnitValue()} {
		got, err := FromBits(v.Kind(), v.Bits())
		if err != nil {
			t.Errorf("FromBits(%s): %v", v, err)
			continue
		}
		if got != v {
			t.Errorf("FromBits(%s) = %s", v, got)
		}
	}

	if _, err := FromBits(KindBool, 2); err == nil {
		t.Error("FromBits(Bool, 2) succeeded")
	}
	if _, err := FromBits(Kind(42), 0); err == nil {
		t.Error("FromBits(Kind(42)) succeeded")
	}
}
