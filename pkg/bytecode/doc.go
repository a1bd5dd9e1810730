// Package bytecode defines the executable form of a tern program: single-byte
// opcodes with big-endian operands, chunks that pair code with a per-byte line
// table and a constant pool, and programs that group chunks into a function
// table.
//
// # Instruction Format
//
// Every instruction starts with one opcode byte. Operands follow directly:
//
//   - Const, GetGlobal, SetGlobal, DefineGlobal, Call: u16 index
//   - Jump, JumpIfFalse: u16 forward distance from the next instruction
//   - Loop: u16 backward distance from the next instruction
//   - GetLocal, SetLocal: u8 slot relative to the frame base
//
// All u16 operands are read through Chunk.ReadUint16, shared by the VM, the
// validator and the disassembler.
//
// # Storage Formats
//
// Programs serialize to the "TNBC" binary format (Program.Serialize and
// Deserialize) for files, and to canonical CBOR (MarshalProgramCBOR) for the
// program store. Both decoders validate the result before returning it.
package bytecode
