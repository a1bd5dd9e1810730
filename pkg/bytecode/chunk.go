package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxConstants is the size of the 16-bit constant index space.
const MaxConstants = 1 << 16

var (
	// ErrConstantPoolFull is returned when a chunk already holds MaxConstants values.
	ErrConstantPoolFull = errors.New("constant pool full")

	// ErrJumpTooFar is returned when a jump distance does not fit in 16 bits.
	ErrJumpTooFar = errors.New("jump distance exceeds 16 bits")
)

// Chunk is the compiled form of one function body: the instruction stream,
// a parallel table holding the source line of every code byte, and the
// constant pool indexed by OpConst. Chunks only grow while being compiled and
// are treated as read-only once handed to the VM.
type Chunk struct {
	Code      []byte  // Opcodes and their operands
	Lines     []int   // Source line of each byte in Code
	Constants []Value // Constant pool
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Lines:     make([]int, 0, 64),
		Constants: make([]Value, 0, 8),
	}
}

func (c *Chunk) write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddInstruction appends a single-byte opcode and returns its offset.
func (c *Chunk) AddInstruction(op Opcode, line int) int {
	offset := len(c.Code)
	c.write(byte(op), line)
	return offset
}

// EmitByteOperand appends an opcode followed by a one-byte operand.
func (c *Chunk) EmitByteOperand(op Opcode, operand uint8, line int) int {
	offset := c.AddInstruction(op, line)
	c.write(operand, line)
	return offset
}

// EmitOperand appends an opcode followed by a big-endian u16 operand.
func (c *Chunk) EmitOperand(op Opcode, operand uint16, line int) int {
	offset := c.AddInstruction(op, line)
	c.write(byte(operand>>8), line)
	c.write(byte(operand), line)
	return offset
}

// AddConstant appends a value to the constant pool and returns its index.
// Values are not deduplicated: every call gets a fresh slot.
func (c *Chunk) AddConstant(v Value) (uint16, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("adding %s: %w", v, ErrConstantPoolFull)
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, v)
	return idx, nil
}

// AddConst adds v to the pool and emits OpConst with its index.
// Nothing is written when the pool is full.
func (c *Chunk) AddConst(v Value, line int) (uint16, error) {
	idx, err := c.AddConstant(v)
	if err != nil {
		return 0, err
	}
	c.EmitOperand(OpConst, idx, line)
	return idx, nil
}

// GetConstant returns the constant at index and whether it exists.
func (c *Chunk) GetConstant(index uint16) (Value, bool) {
	if int(index) >= len(c.Constants) {
		return Value{}, false
	}
	return c.Constants[index], true
}

// ReadUint16 decodes the big-endian u16 stored at offset. It is the single
// decoder used by the disassembler, the validator and the VM, so the operand
// byte order cannot drift between writer and readers.
func (c *Chunk) ReadUint16(offset int) (uint16, bool) {
	if offset < 0 || offset+2 > len(c.Code) {
		return 0, false
	}
	return binary.BigEndian.Uint16(c.Code[offset:]), true
}

// EmitJump emits a forward jump with a placeholder distance.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitJump(op Opcode, line int) int {
	c.EmitOperand(op, 0xFFFF, line)
	return len(c.Code) - 2
}

// PatchJump makes the jump whose placeholder is at placeholderOffset land on
// the current end of the code.
func (c *Chunk) PatchJump(placeholderOffset int) error {
	delta := len(c.Code) - (placeholderOffset + 2)
	if delta < 0 || delta > 0xFFFF {
		return fmt.Errorf("patching jump at %d: %w", placeholderOffset, ErrJumpTooFar)
	}
	binary.BigEndian.PutUint16(c.Code[placeholderOffset:], uint16(delta))
	return nil
}

// EmitLoop emits a backward jump to loopStart.
func (c *Chunk) EmitLoop(loopStart int, line int) error {
	delta := len(c.Code) + 3 - loopStart
	if delta < 0 || delta > 0xFFFF {
		return fmt.Errorf("loop to %d: %w", loopStart, ErrJumpTooFar)
	}
	c.EmitOperand(OpLoop, uint16(delta), line)
	return nil
}

// Line returns the source line recorded for the byte at offset, or 0.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Len returns the length of the code section.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// InstructionCount returns the number of instructions in the chunk.
// Note: This iterates through all code, so it's O(n).
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		offset += Opcode(c.Code[offset]).InstructionLen()
		count++
	}
	return count
}
