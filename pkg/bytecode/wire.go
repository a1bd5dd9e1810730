package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireValue struct {
	Kind Kind   `cbor:"1,keyasint"`
	Bits uint64 `cbor:"2,keyasint"`
}

type wireFunction struct {
	Name      string      `cbor:"1,keyasint"`
	Arity     uint8       `cbor:"2,keyasint"`
	Code      []byte      `cbor:"3,keyasint"`
	Lines     []int       `cbor:"4,keyasint"`
	Constants []wireValue `cbor:"5,keyasint,omitempty"`
}

type wireProgram struct {
	Version   uint16         `cbor:"1,keyasint"`
	Entry     int            `cbor:"2,keyasint"`
	Functions []wireFunction `cbor:"3,keyasint"`
}

// MarshalProgramCBOR serializes a Program to CBOR bytes.
func MarshalProgramCBOR(p *Program) ([]byte, error) {
	w := wireProgram{
		Version:   BytecodeVersion,
		Entry:     p.Entry,
		Functions: make([]wireFunction, len(p.Functions)),
	}
	for i, fn := range p.Functions {
		wf := wireFunction{
			Name:  fn.Name,
			Arity: fn.Arity,
			Code:  fn.Chunk.Code,
			Lines: fn.Chunk.Lines,
		}
		for _, v := range fn.Chunk.Constants {
			wf.Constants = append(wf.Constants, wireValue{Kind: v.Kind(), Bits: v.Bits()})
		}
		w.Functions[i] = wf
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalProgramCBOR deserializes and validates a Program from CBOR bytes.
func UnmarshalProgramCBOR(data []byte) (*Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if w.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode: version %d is newer than supported version %d", w.Version, BytecodeVersion)
	}

	p := &Program{Entry: w.Entry, Functions: make([]*Function, len(w.Functions))}
	for i, wf := range w.Functions {
		c := &Chunk{
			Code:      append([]byte(nil), wf.Code...),
			Lines:     append([]int(nil), wf.Lines...),
			Constants: make([]Value, len(wf.Constants)),
		}
		for j, wv := range wf.Constants {
			v, err := FromBits(wv.Kind, wv.Bits)
			if err != nil {
				return nil, fmt.Errorf("bytecode: function %d constant %d: %w", i, j, err)
			}
			c.Constants[j] = v
		}
		p.Functions[i] = &Function{Name: wf.Name, Chunk: c, Arity: wf.Arity}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return p, nil
}
