package bytecode

import (
	"errors"
	"fmt"
)

// ErrMalformedChunk is matched by every *ValidationError.
var ErrMalformedChunk = errors.New("malformed chunk")

// ValidationError pinpoints the instruction that makes a chunk unusable.
type ValidationError struct {
	Offset int
	Op     Opcode
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("offset %04d (%s): %s", e.Offset, e.Op, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedChunk.
func (e *ValidationError) Unwrap() error { return ErrMalformedChunk }

// JumpTarget returns the absolute offset a jump instruction at offset lands
// on, given its decoded distance operand.
func JumpTarget(op Opcode, offset int, distance uint16) int {
	next := offset + op.InstructionLen()
	if op == OpLoop {
		return next - int(distance)
	}
	return next + int(distance)
}

// Validate checks that every byte decodes: opcodes are defined, operands are
// present, constant indices address the pool, jumps land on an instruction
// boundary inside the chunk, and the line table covers every byte.
func (c *Chunk) Validate() error {
	if len(c.Lines) != len(c.Code) {
		return &ValidationError{Offset: 0, Reason: fmt.Sprintf("line table has %d entries for %d code bytes", len(c.Lines), len(c.Code))}
	}

	starts := make(map[int]bool)
	type jump struct {
		offset int
		op     Opcode
		target int
	}
	var jumps []jump

	offset := 0
	for offset < len(c.Code) {
		op, ok := Decode(c.Code[offset])
		if !ok {
			return &ValidationError{Offset: offset, Op: op, Reason: "unknown opcode"}
		}
		starts[offset] = true

		if offset+op.InstructionLen() > len(c.Code) {
			return &ValidationError{Offset: offset, Op: op, Reason: "truncated operand"}
		}

		switch op {
		case OpConst:
			idx, _ := c.ReadUint16(offset + 1)
			if int(idx) >= len(c.Constants) {
				return &ValidationError{Offset: offset, Op: op,
					Reason: fmt.Sprintf("constant index %d out of range (pool has %d)", idx, len(c.Constants))}
			}
		case OpJump, OpJumpIfFalse, OpLoop:
			distance, _ := c.ReadUint16(offset + 1)
			jumps = append(jumps, jump{offset, op, JumpTarget(op, offset, distance)})
		}

		offset += op.InstructionLen()
	}

	for _, j := range jumps {
		if j.target < 0 || j.target >= len(c.Code) || !starts[j.target] {
			return &ValidationError{Offset: j.offset, Op: j.op, Reason: fmt.Sprintf("jump target %d is not an instruction", j.target)}
		}
	}
	return nil
}
