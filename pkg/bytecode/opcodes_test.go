package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode %d has no metadata", op)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 45 {
		t.Errorf("OpcodeCount() = %d, want 45", got)
	}
	if got := len(AllOpcodes()); got != OpcodeCount() {
		t.Errorf("len(AllOpcodes()) = %d, want %d", got, OpcodeCount())
	}
}

func TestOpcodeNumbersAreStable(t *testing.T) {
	tests := []struct {
		op   Opcode
		want byte
	}{
		{OpConst, 0},
		{OpTrue, 1},
		{OpFalse, 2},
		{OpGetLocal, 10},
		{OpDefineGlobal, 14},
		{OpJump, 20},
		{OpLoop, 22},
		{OpI64Add, 30},
		{OpI64Div, 33},
		{OpU64Add, 40},
		{OpF64Add, 50},
		{OpI64Eq, 60},
		{OpI64Gt, 62},
		{OpF64Eq, 70},
		{OpBoolNot, 80},
		{OpPop, 90},
		{OpReturn, 91},
		{OpCall, 92},
		{OpU64Eq, 100},
		{OpU64Ge, 105},
	}

	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Errorf("%s = %d, want %d", tt.op, byte(tt.op), tt.want)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpConst, "Const"},
		{OpTrue, "True"},
		{OpI64Add, "I64Add"},
		{OpU64Div, "U64Div"},
		{OpF64Le, "F64Le"},
		{OpBoolNot, "BoolNot"},
		{OpReturn, "Return"},
		{OpCall, "Call"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(%d).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	for _, op := range AllOpcodes() {
		got, ok := Decode(byte(op))
		if !ok || got != op {
			t.Errorf("Decode(%d) = %s, %v", byte(op), got, ok)
		}
	}

	for _, b := range []byte{3, 9, 15, 34, 99, 106, 200, 255} {
		if _, ok := Decode(b); ok {
			t.Errorf("Decode(%d) succeeded, want unknown", b)
		}
		if got := Opcode(b).String(); !strings.HasPrefix(got, "UNKNOWN") {
			t.Errorf("Opcode(%d).String() = %q, want UNKNOWN", b, got)
		}
	}
}

func TestOpcodeOperandLen(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpConst, 2},
		{OpTrue, 0},
		{OpGetLocal, 1},
		{OpSetLocal, 1},
		{OpGetGlobal, 2},
		{OpJumpIfFalse, 2},
		{OpLoop, 2},
		{OpI64Mul, 0},
		{OpCall, 2},
		{OpReturn, 0},
	}

	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
		if got := tt.op.InstructionLen(); got != tt.want+1 {
			t.Errorf("%s.InstructionLen() = %d, want %d", tt.op, got, tt.want+1)
		}
	}
}

func TestOpcodeIsJump(t *testing.T) {
	for _, op := range AllOpcodes() {
		want := op == OpJump || op == OpJumpIfFalse || op == OpLoop
		if op.IsJump() != want {
			t.Errorf("%s.IsJump() = %v, want %v", op, op.IsJump(), want)
		}
	}
}
