package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Numeric values are part of the binary format and must never be renumbered.
type Opcode byte

const (
	// ========================================================================
	// Stack literals (0-9)
	// ========================================================================

	OpConst Opcode = 0 // Push constant from pool: OpConst <index:u16>
	OpTrue  Opcode = 1 // Push true
	OpFalse Opcode = 2 // Push false

	// ========================================================================
	// Locals and globals (10-19)
	// ========================================================================

	OpGetLocal     Opcode = 10 // Push frame slot: OpGetLocal <slot:u8>
	OpSetLocal     Opcode = 11 // Store top into frame slot, keep it: OpSetLocal <slot:u8>
	OpGetGlobal    Opcode = 12 // Push global: OpGetGlobal <index:u16>
	OpSetGlobal    Opcode = 13 // Store top into defined global, keep it: OpSetGlobal <index:u16>
	OpDefineGlobal Opcode = 14 // Pop and define global: OpDefineGlobal <index:u16>

	// ========================================================================
	// Control flow (20-29)
	// ========================================================================

	OpJump        Opcode = 20 // Forward jump: OpJump <offset:u16>
	OpJumpIfFalse Opcode = 21 // Pop Bool, jump forward if false: OpJumpIfFalse <offset:u16>
	OpLoop        Opcode = 22 // Backward jump: OpLoop <offset:u16>

	// ========================================================================
	// Int64 arithmetic (30-39)
	// ========================================================================

	OpI64Add Opcode = 30
	OpI64Sub Opcode = 31
	OpI64Mul Opcode = 32
	OpI64Div Opcode = 33

	// ========================================================================
	// Uint64 arithmetic (40-49)
	// ========================================================================

	OpU64Add Opcode = 40
	OpU64Sub Opcode = 41
	OpU64Mul Opcode = 42
	OpU64Div Opcode = 43

	// ========================================================================
	// Float64 arithmetic (50-59)
	// ========================================================================

	OpF64Add Opcode = 50
	OpF64Sub Opcode = 51
	OpF64Mul Opcode = 52
	OpF64Div Opcode = 53

	// ========================================================================
	// Int64 comparison (60-69)
	// ========================================================================

	OpI64Eq Opcode = 60
	OpI64Lt Opcode = 61
	OpI64Gt Opcode = 62
	OpI64Ne Opcode = 63
	OpI64Le Opcode = 64
	OpI64Ge Opcode = 65

	// ========================================================================
	// Float64 comparison (70-79)
	// ========================================================================

	OpF64Eq Opcode = 70
	OpF64Lt Opcode = 71
	OpF64Gt Opcode = 72
	OpF64Ne Opcode = 73
	OpF64Le Opcode = 74
	OpF64Ge Opcode = 75

	// ========================================================================
	// Boolean (80-89)
	// ========================================================================

	OpBoolNot Opcode = 80

	// ========================================================================
	// Frame control (90-99)
	// ========================================================================

	OpPop    Opcode = 90 // Discard top of stack
	OpReturn Opcode = 91 // Return top of stack from the current frame
	OpCall   Opcode = 92 // Call function: OpCall <function:u16>

	// ========================================================================
	// Uint64 comparison (100-109)
	// ========================================================================

	OpU64Eq Opcode = 100
	OpU64Lt Opcode = 101
	OpU64Gt Opcode = 102
	OpU64Ne Opcode = 103
	OpU64Le Opcode = 104
	OpU64Ge Opcode = 105
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack literals
	OpConst: {"Const", 0, 1, 2},
	OpTrue:  {"True", 0, 1, 0},
	OpFalse: {"False", 0, 1, 0},

	// Locals and globals
	OpGetLocal:     {"GetLocal", 0, 1, 1},
	OpSetLocal:     {"SetLocal", 1, 1, 1},
	OpGetGlobal:    {"GetGlobal", 0, 1, 2},
	OpSetGlobal:    {"SetGlobal", 1, 1, 2},
	OpDefineGlobal: {"DefineGlobal", 1, 0, 2},

	// Control flow
	OpJump:        {"Jump", 0, 0, 2},
	OpJumpIfFalse: {"JumpIfFalse", 1, 0, 2},
	OpLoop:        {"Loop", 0, 0, 2},

	// Arithmetic
	OpI64Add: {"I64Add", 2, 1, 0},
	OpI64Sub: {"I64Sub", 2, 1, 0},
	OpI64Mul: {"I64Mul", 2, 1, 0},
	OpI64Div: {"I64Div", 2, 1, 0},
	OpU64Add: {"U64Add", 2, 1, 0},
	OpU64Sub: {"U64Sub", 2, 1, 0},
	OpU64Mul: {"U64Mul", 2, 1, 0},
	OpU64Div: {"U64Div", 2, 1, 0},
	OpF64Add: {"F64Add", 2, 1, 0},
	OpF64Sub: {"F64Sub", 2, 1, 0},
	OpF64Mul: {"F64Mul", 2, 1, 0},
	OpF64Div: {"F64Div", 2, 1, 0},

	// Comparison
	OpI64Eq: {"I64Eq", 2, 1, 0},
	OpI64Ne: {"I64Ne", 2, 1, 0},
	OpI64Lt: {"I64Lt", 2, 1, 0},
	OpI64Le: {"I64Le", 2, 1, 0},
	OpI64Gt: {"I64Gt", 2, 1, 0},
	OpI64Ge: {"I64Ge", 2, 1, 0},
	OpU64Eq: {"U64Eq", 2, 1, 0},
	OpU64Ne: {"U64Ne", 2, 1, 0},
	OpU64Lt: {"U64Lt", 2, 1, 0},
	OpU64Le: {"U64Le", 2, 1, 0},
	OpU64Gt: {"U64Gt", 2, 1, 0},
	OpU64Ge: {"U64Ge", 2, 1, 0},
	OpF64Eq: {"F64Eq", 2, 1, 0},
	OpF64Ne: {"F64Ne", 2, 1, 0},
	OpF64Lt: {"F64Lt", 2, 1, 0},
	OpF64Le: {"F64Le", 2, 1, 0},
	OpF64Gt: {"F64Gt", 2, 1, 0},
	OpF64Ge: {"F64Ge", 2, 1, 0},

	// Boolean
	OpBoolNot: {"BoolNot", 1, 1, 0},

	// Frame control
	OpPop:    {"Pop", 1, 0, 0},
	OpReturn: {"Return", 1, 0, 0},
	OpCall:   {"Call", -1, 0, 2}, // Pops arity args into the callee's frame
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", byte(op))}
}

// Decode maps a raw code byte to its opcode. ok is false for bytes that are
// not a defined opcode.
func Decode(b byte) (op Opcode, ok bool) {
	_, ok = opcodeInfoTable[Opcode(b)]
	return Opcode(b), ok
}

// IsValid reports whether op is a defined opcode.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode transfers control within a chunk.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpLoop
}

// AllOpcodes returns a slice of all defined opcodes in numeric order.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for b := 0; b < 256; b++ {
		if _, ok := opcodeInfoTable[Opcode(b)]; ok {
			opcodes = append(opcodes, Opcode(b))
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
