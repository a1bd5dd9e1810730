package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/tern/pkg/bytecode"
)

// Sentinel errors carried in RuntimeError.Err.
var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrFrameOverflow     = errors.New("call depth exceeded")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrInvalidOpCode     = errors.New("invalid opcode")
	ErrInvalidJumpTarget = errors.New("invalid jump target")
	ErrUndefinedFunction = errors.New("undefined function")
	ErrUndefinedGlobal   = errors.New("undefined global")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrBudgetExhausted   = errors.New("instruction budget exhausted")
	ErrTruncatedOperand  = errors.New("truncated operand")
	ErrConstantIndex     = errors.New("constant index out of range")
	ErrEndOfCode         = errors.New("ran past end of code")
	ErrNilProgram        = errors.New("nil program")
)

// FrameInfo locates one active call frame.
type FrameInfo struct {
	Function string
	Offset   int
	Line     int
}

func (f FrameInfo) String() string {
	return fmt.Sprintf("%s@%04d line:%04d", f.Function, f.Offset, f.Line)
}

// RuntimeError is a failed run. Op, Function, Offset and Line describe the
// instruction being executed; Frames lists every active frame, innermost
// first.
type RuntimeError struct {
	Err      error
	Detail   string
	Op       bytecode.Opcode
	Function string
	Offset   int
	Line     int
	Frames   []FrameInfo
	RunID    uuid.UUID
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString("execute")
	if e.Function != "" {
		fmt.Fprintf(&sb, " %s@%04d", e.Function, e.Offset)
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, " line %d", e.Line)
	}
	if e.Function != "" && e.Err != ErrEndOfCode {
		fmt.Fprintf(&sb, " (%s)", e.Op)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Unwrap exposes the sentinel.
func (e *RuntimeError) Unwrap() error { return e.Err }

// fault creates an unlocated error; the run loop fills in the position.
func fault(err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{Err: err, Detail: fmt.Sprintf(format, args...)}
}
