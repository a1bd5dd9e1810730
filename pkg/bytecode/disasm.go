package bytecode

import (
	"fmt"
)

// Disassemble returns one line per instruction:
//
//	0000 line:0001 - Const 0 ; 4i64
//	0003 line:0001 - I64Add
//
// The output depends only on the chunk's bytes, so it is stable enough to
// diff in tests.
func (c *Chunk) Disassemble() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		text, instrLen := c.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04d line:%04d - %s", offset, c.Line(offset), text))
		offset += instrLen
	}
	return lines
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	text, _ := c.disassembleInstruction(offset)
	return text
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op, ok := Decode(c.Code[offset])
	if !ok {
		return op.String(), 1
	}
	info := GetOpcodeInfo(op)

	if offset+1+info.OperandLen > len(c.Code) {
		return fmt.Sprintf("%s <truncated>", info.Name), len(c.Code) - offset
	}

	switch op {
	case OpConst:
		idx, _ := c.ReadUint16(offset + 1)
		if v, ok := c.GetConstant(idx); ok {
			return fmt.Sprintf("%s %d ; %s", info.Name, idx, v), 3
		}
		return fmt.Sprintf("%s %d ; <out of range>", info.Name, idx), 3

	case OpGetLocal, OpSetLocal:
		return fmt.Sprintf("%s %d", info.Name, c.Code[offset+1]), 2

	case OpJump, OpJumpIfFalse, OpLoop:
		distance, _ := c.ReadUint16(offset + 1)
		return fmt.Sprintf("%s %d -> %04d", info.Name, distance, JumpTarget(op, offset, distance)), 3

	case OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpCall:
		idx, _ := c.ReadUint16(offset + 1)
		return fmt.Sprintf("%s %d", info.Name, idx), 3

	default:
		return info.Name, 1 + info.OperandLen
	}
}
