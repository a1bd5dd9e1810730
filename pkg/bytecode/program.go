package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFunctions is the size of the 16-bit function index space used by OpCall.
const MaxFunctions = 1 << 16

// ErrNoEntry is returned when a program's entry index addresses no function.
var ErrNoEntry = errors.New("entry function not found")

// Function is a named chunk taking Arity arguments.
type Function struct {
	Name  string
	Chunk *Chunk
	Arity uint8
}

// NewFunction creates a function with an empty chunk.
func NewFunction(name string, arity uint8) *Function {
	return &Function{Name: name, Chunk: NewChunk(), Arity: arity}
}

// Program is the function table produced by one compilation plus the index of
// the function execution starts in.
type Program struct {
	Functions []*Function
	Entry     int
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddFunction appends fn and returns the index OpCall uses to reach it.
func (p *Program) AddFunction(fn *Function) (uint16, error) {
	if len(p.Functions) >= MaxFunctions {
		return 0, fmt.Errorf("adding function %q: function table full", fn.Name)
	}
	p.Functions = append(p.Functions, fn)
	return uint16(len(p.Functions) - 1), nil
}

// EntryFunction returns the function execution starts in.
func (p *Program) EntryFunction() (*Function, error) {
	if p.Entry < 0 || p.Entry >= len(p.Functions) {
		return nil, fmt.Errorf("entry %d of %d functions: %w", p.Entry, len(p.Functions), ErrNoEntry)
	}
	return p.Functions[p.Entry], nil
}

// Validate checks the entry index, every chunk, and every OpCall target.
func (p *Program) Validate() error {
	if _, err := p.EntryFunction(); err != nil {
		return err
	}
	for i, fn := range p.Functions {
		if fn == nil || fn.Chunk == nil {
			return fmt.Errorf("function %d: missing chunk", i)
		}
		if err := fn.Chunk.Validate(); err != nil {
			return fmt.Errorf("function %d (%s): %w", i, fn.Name, err)
		}
		for offset := 0; offset < fn.Chunk.Len(); offset += Opcode(fn.Chunk.Code[offset]).InstructionLen() {
			if Opcode(fn.Chunk.Code[offset]) != OpCall {
				continue
			}
			idx, _ := fn.Chunk.ReadUint16(offset + 1)
			if int(idx) >= len(p.Functions) {
				return fmt.Errorf("function %d (%s): %w", i, fn.Name, &ValidationError{
					Offset: offset, Op: OpCall,
					Reason: fmt.Sprintf("call target %d out of range (%d functions)", idx, len(p.Functions)),
				})
			}
		}
	}
	return nil
}

// Disassemble lists every function, entry marked, one instruction per line.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	for i, fn := range p.Functions {
		marker := ""
		if i == p.Entry {
			marker = " [entry]"
		}
		sb.WriteString(fmt.Sprintf("== %s (arity %d)%s ==\n", fn.Name, fn.Arity, marker))
		for _, line := range fn.Chunk.Disassemble() {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
