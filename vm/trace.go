package vm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tern/pkg/bytecode"
)

// TraceEvent describes the instruction about to execute. Stack and Frames
// are copies owned by the event.
type TraceEvent struct {
	RunID    uuid.UUID
	Step     int
	Function string
	Offset   int
	Line     int
	Op       bytecode.Opcode
	Operand  int // -1 when the opcode takes no operand
	Stack    []bytecode.Value
	Frames   []FrameInfo // innermost first
}

func (e TraceEvent) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s@%04d line:%04d %s", e.Function, e.Offset, e.Line, e.Op)
	if e.Operand >= 0 {
		fmt.Fprintf(&sb, " %d", e.Operand)
	}
	sb.WriteString(" [")
	for i, v := range e.Stack {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(v.String())
	}
	fmt.Fprintf(&sb, "] depth=%d", len(e.Frames))
	return sb.String()
}

// TraceHook receives one event per dispatched instruction.
type TraceHook func(TraceEvent)

// LogTracer returns a hook writing each event to log at debug level.
func LogTracer(log commonlog.Logger) TraceHook {
	return func(e TraceEvent) {
		log.Debug(e.String(), "run", e.RunID.String(), "step", e.Step)
	}
}
