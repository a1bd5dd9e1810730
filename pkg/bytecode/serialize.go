package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// Magic bytes for bytecode files: "TNBC" (Tern ByteCode)
var BytecodeMagic = []byte{'T', 'N', 'B', 'C'}

// Serialize encodes the program to bytes for storage/transport.
// Format (all integers big-endian):
//
//	[magic:4] [version:2] [entry:2] [function_count:4]
//	per function:
//	  [name_len:2] [name:...] [arity:1]
//	  [code_len:4] [code:...] [lines:4*code_len]
//	  [const_count:4] per constant: [kind:1] [bits:8]
func (p *Program) Serialize() ([]byte, error) {
	if p.Entry < 0 || p.Entry > math.MaxUint16 {
		return nil, fmt.Errorf("entry index %d does not fit the format", p.Entry)
	}

	estimatedSize := 12
	for _, fn := range p.Functions {
		estimatedSize += 16 + len(fn.Name) + len(fn.Chunk.Code)*5 + len(fn.Chunk.Constants)*9
	}
	buf := make([]byte, 0, estimatedSize)

	buf = append(buf, BytecodeMagic...)
	buf = binary.BigEndian.AppendUint16(buf, BytecodeVersion)
	buf = binary.BigEndian.AppendUint16(buf, uint16(p.Entry))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Functions)))

	for i, fn := range p.Functions {
		if len(fn.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("function %d: name too long", i)
		}
		c := fn.Chunk
		if len(c.Lines) != len(c.Code) {
			return nil, fmt.Errorf("function %d (%s): line table has %d entries for %d code bytes", i, fn.Name, len(c.Lines), len(c.Code))
		}

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(fn.Name)))
		buf = append(buf, fn.Name...)
		buf = append(buf, fn.Arity)

		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Code)))
		buf = append(buf, c.Code...)
		for _, line := range c.Lines {
			buf = binary.BigEndian.AppendUint32(buf, uint32(line))
		}

		buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Constants)))
		for _, v := range c.Constants {
			buf = append(buf, byte(v.Kind()))
			buf = binary.BigEndian.AppendUint64(buf, v.Bits())
		}
	}

	return buf, nil
}

// decoder walks a serialized program, tracking the read position.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int, what string) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading %s at pos %d", what, d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u8(what string) (uint8, error) {
	b, err := d.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16(what string) (uint16, error) {
	b, err := d.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32(what string) (uint32, error) {
	b, err := d.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64(what string) (uint64, error) {
	b, err := d.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Deserialize decodes and validates a program.
func Deserialize(data []byte) (*Program, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("bytecode too short: need at least 12 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(BytecodeMagic) {
		return nil, fmt.Errorf("invalid bytecode magic: expected %q, got %q", BytecodeMagic, data[0:4])
	}

	d := &decoder{data: data, pos: 4}
	version, _ := d.u16("version")
	if version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode version %d is newer than supported version %d", version, BytecodeVersion)
	}
	entry, _ := d.u16("entry")
	fnCount, _ := d.u32("function count")
	if fnCount > MaxFunctions {
		return nil, fmt.Errorf("function count %d exceeds %d", fnCount, MaxFunctions)
	}

	p := &Program{Entry: int(entry), Functions: make([]*Function, 0, fnCount)}
	for i := 0; i < int(fnCount); i++ {
		fn, err := d.function(i)
		if err != nil {
			return nil, err
		}
		p.Functions = append(p.Functions, fn)
	}

	if d.pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after program", len(data)-d.pos)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *decoder) function(i int) (*Function, error) {
	nameLen, err := d.u16(fmt.Sprintf("function %d name length", i))
	if err != nil {
		return nil, err
	}
	name, err := d.take(int(nameLen), fmt.Sprintf("function %d name", i))
	if err != nil {
		return nil, err
	}
	arity, err := d.u8(fmt.Sprintf("function %d arity", i))
	if err != nil {
		return nil, err
	}

	codeLen, err := d.u32(fmt.Sprintf("function %d code length", i))
	if err != nil {
		return nil, err
	}
	code, err := d.take(int(codeLen), fmt.Sprintf("function %d code", i))
	if err != nil {
		return nil, err
	}

	c := &Chunk{
		Code:  make([]byte, codeLen),
		Lines: make([]int, codeLen),
	}
	copy(c.Code, code)
	for j := range c.Lines {
		line, err := d.u32(fmt.Sprintf("function %d line %d", i, j))
		if err != nil {
			return nil, err
		}
		c.Lines[j] = int(line)
	}

	constCount, err := d.u32(fmt.Sprintf("function %d constant count", i))
	if err != nil {
		return nil, err
	}
	if constCount > MaxConstants {
		return nil, fmt.Errorf("function %d: constant count %d exceeds %d", i, constCount, MaxConstants)
	}
	c.Constants = make([]Value, constCount)
	for j := range c.Constants {
		kind, err := d.u8(fmt.Sprintf("function %d constant %d kind", i, j))
		if err != nil {
			return nil, err
		}
		bits, err := d.u64(fmt.Sprintf("function %d constant %d", i, j))
		if err != nil {
			return nil, err
		}
		if c.Constants[j], err = FromBits(Kind(kind), bits); err != nil {
			return nil, fmt.Errorf("function %d constant %d: %w", i, j, err)
		}
	}

	return &Function{Name: string(name), Chunk: c, Arity: arity}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler with the TNBC format.
func (p *Program) MarshalBinary() ([]byte, error) {
	return p.Serialize()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver is
// replaced only when the data decodes and validates.
func (p *Program) UnmarshalBinary(data []byte) error {
	decoded, err := Deserialize(data)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}
