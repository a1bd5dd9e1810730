package bytecode

import (
	"bytes"
	"errors"
	"testing"
)

func TestCBORRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := MarshalProgramCBOR(p)
	if err != nil {
		t.Fatalf("MarshalProgramCBOR: %v", err)
	}
	got, err := UnmarshalProgramCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalProgramCBOR: %v", err)
	}

	want, _ := p.Serialize()
	have, _ := got.Serialize()
	if !bytes.Equal(have, want) {
		t.Error("program changed across CBOR round trip")
	}
}

func TestCBORCanonical(t *testing.T) {
	a, err := MarshalProgramCBOR(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalProgramCBOR(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal programs encoded differently")
	}
}

func TestCBORRejectsInvalidProgram(t *testing.T) {
	p := NewProgram()
	fn := NewFunction("main", 0)
	fn.Chunk.EmitOperand(OpJump, 40, 1)
	p.AddFunction(fn)

	data, err := MarshalProgramCBOR(p)
	if err != nil {
		t.Fatal(err)
	}
	_, err = UnmarshalProgramCBOR(data)
	if !errors.Is(err, ErrMalformedChunk) {
		t.Errorf("error = %v, want ErrMalformedChunk", err)
	}

	if _, err := UnmarshalProgramCBOR([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected error for garbage input")
	}
}
