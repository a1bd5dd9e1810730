package bytecode

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"
)

// sampleProgram builds a two-function program touching every operand shape.
func sampleProgram() *Program {
	p := NewProgram()

	main := NewFunction("main", 0)
	c := main.Chunk
	c.AddConst(Int64Value(-3), 1)
	c.AddConst(Uint64Value(math.MaxUint64), 1)
	c.AddConst(Float64Value(math.NaN()), 2)
	c.AddInstruction(OpPop, 2)
	c.AddInstruction(OpPop, 2)
	c.EmitOperand(OpCall, 1, 3)
	c.AddInstruction(OpReturn, 3)
	p.AddFunction(main)

	id := NewFunction("id", 1)
	id.Chunk.EmitByteOperand(OpGetLocal, 0, 5)
	id.Chunk.AddInstruction(OpReturn, 5)
	p.AddFunction(id)

	return p
}

func TestSerializeRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := p.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.HasPrefix(data, BytecodeMagic) {
		t.Errorf("data starts with %q, want magic", data[:4])
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got.Functions[0].Chunk.Code, p.Functions[0].Chunk.Code) {
		t.Errorf("code mismatch")
	}
	if !reflect.DeepEqual(got.Functions[0].Chunk.Lines, p.Functions[0].Chunk.Lines) {
		t.Errorf("lines = %v, want %v", got.Functions[0].Chunk.Lines, p.Functions[0].Chunk.Lines)
	}
	if got.Functions[1].Name != "id" || got.Functions[1].Arity != 1 {
		t.Errorf("function 1 = %s/%d, want id/1", got.Functions[1].Name, got.Functions[1].Arity)
	}

	// Values compare by kind and bits, so NaN survives exactly.
	for i, v := range p.Functions[0].Chunk.Constants {
		if got.Functions[0].Chunk.Constants[i] != v {
			t.Errorf("constant %d = %s, want %s", i, got.Functions[0].Chunk.Constants[i], v)
		}
	}

	again, err := got.Serialize()
	if err != nil {
		t.Fatalf("re-Serialize: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("re-serialized bytes differ")
	}
}

func TestDeserializeErrors(t *testing.T) {
	valid, err := sampleProgram().Serialize()
	if err != nil {
		t.Fatal(err)
	}

	newer := append([]byte(nil), valid...)
	newer[4], newer[5] = 0xFF, 0xFF

	badConst := NewProgram()
	fn := NewFunction("main", 0)
	fn.Chunk.EmitOperand(OpConst, 9, 1)
	fn.Chunk.AddInstruction(OpReturn, 1)
	badConst.AddFunction(fn)
	badConstData, err := badConst.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"short", []byte("TNBC"), "too short"},
		{"magic", append([]byte("XXXX"), valid[4:]...), "invalid bytecode magic"},
		{"version", newer, "newer than supported"},
		{"truncated", valid[:len(valid)-3], "unexpected end"},
		{"trailing", append(append([]byte(nil), valid...), 0), "trailing bytes"},
		{"invalid chunk", badConstData, "constant index 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSerializeRejectsBrokenLineTable(t *testing.T) {
	p := NewProgram()
	p.AddFunction(&Function{Name: "main", Chunk: &Chunk{Code: []byte{byte(OpReturn)}}})

	if _, err := p.Serialize(); err == nil {
		t.Error("expected error for missing line entries")
	}
}
