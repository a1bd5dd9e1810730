package vm

import "github.com/chazu/tern/pkg/bytecode"

// CallFrame is the execution state of one function invocation.
type CallFrame struct {
	Function *bytecode.Function
	IP       int // offset of the next instruction
	Base     int // operand stack depth where this frame's window starts
}

// info reports the frame's position. offset is the instruction being run,
// which differs from IP once its operands have been consumed.
func (f *CallFrame) info(offset int) FrameInfo {
	return FrameInfo{
		Function: f.Function.Name,
		Offset:   offset,
		Line:     f.Function.Chunk.Line(offset),
	}
}
