package vm

import (
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/tern/pkg/bytecode"
)

// VM executes programs. Configuration is fixed at construction; the stacks
// and globals are rebuilt for every run.
type VM struct {
	maxSteps   int
	stackLimit int
	frameLimit int
	trace      TraceHook
	log        commonlog.Logger

	// Execution state
	prog    *bytecode.Program
	stack   []bytecode.Value
	frames  []CallFrame
	globals map[uint16]bytecode.Value
	steps   int
	runID   uuid.UUID
}

// New creates a VM.
func New(opts ...Option) *VM {
	vm := &VM{
		stackLimit: DefaultStackLimit,
		frameLimit: DefaultFrameLimit,
		log:        commonlog.GetLogger("tern.vm"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Run executes prog and returns its Int64 result. A program whose entry
// function returns any other type fails with ErrTypeMismatch.
func (vm *VM) Run(prog *bytecode.Program) (int64, error) {
	result, err := vm.Execute(prog)
	if err != nil {
		return 0, err
	}
	n, ok := result.AsInt64()
	if !ok {
		e := fault(ErrTypeMismatch, "entry function returned %s, want Int64", result.Kind())
		e.Op = bytecode.OpReturn
		e.RunID = vm.runID
		return 0, e
	}
	return n, nil
}

// Execute runs prog and returns whatever value its entry function returns.
func (vm *VM) Execute(prog *bytecode.Program) (bytecode.Value, error) {
	vm.runID = uuid.New()
	if prog == nil {
		return bytecode.Value{}, &RuntimeError{Err: ErrNilProgram, RunID: vm.runID}
	}
	entry, err := prog.EntryFunction()
	if err != nil {
		return bytecode.Value{}, &RuntimeError{Err: ErrUndefinedFunction, Detail: err.Error(), RunID: vm.runID}
	}

	vm.prog = prog
	defer func() { vm.prog = nil }()
	vm.stack = make([]bytecode.Value, 0, 256)
	vm.frames = make([]CallFrame, 0, 16)
	vm.globals = make(map[uint16]bytecode.Value)
	vm.steps = 0

	vm.log.Debugf("run %s: start %s", vm.runID, entry.Name)
	if e := vm.enter(entry); e != nil {
		e.Op = bytecode.OpCall
		e.Function = entry.Name
		e.RunID = vm.runID
		return bytecode.Value{}, e
	}

	result, err := vm.run()
	if err != nil {
		vm.log.Debugf("run %s: failed after %d steps: %s", vm.runID, vm.steps, err)
		return bytecode.Value{}, err
	}
	vm.log.Debugf("run %s: returned %s after %d steps", vm.runID, result, vm.steps)
	return result, nil
}

// RunID identifies the most recent run in logs and trace events.
func (vm *VM) RunID() uuid.UUID { return vm.runID }

// Steps returns the number of instructions the most recent run dispatched.
func (vm *VM) Steps() int { return vm.steps }

// enter pushes a frame for fn whose arguments are the top Arity stack values.
func (vm *VM) enter(fn *bytecode.Function) *RuntimeError {
	if len(vm.frames) >= vm.frameLimit {
		return fault(ErrFrameOverflow, "call to %s at depth %d", fn.Name, len(vm.frames))
	}
	floor := 0
	if len(vm.frames) > 0 {
		floor = vm.frames[len(vm.frames)-1].Base
	}
	base := len(vm.stack) - int(fn.Arity)
	if base < floor {
		return fault(ErrStackUnderflow, "%s takes %d arguments, %d available", fn.Name, fn.Arity, len(vm.stack)-floor)
	}
	vm.frames = append(vm.frames, CallFrame{Function: fn, Base: base})
	return nil
}

// run is the dispatch loop. It returns when the last frame returns.
func (vm *VM) run() (bytecode.Value, error) {
	for len(vm.frames) > 0 {
		frame := &vm.frames[len(vm.frames)-1]
		chunk := frame.Function.Chunk
		offset := frame.IP

		if offset >= len(chunk.Code) {
			return bytecode.Value{}, vm.locate(fault(ErrEndOfCode, "no Return in %s", frame.Function.Name), 0, offset)
		}
		op, ok := bytecode.Decode(chunk.Code[offset])
		if !ok {
			return bytecode.Value{}, vm.locate(fault(ErrInvalidOpCode, "byte 0x%02X", chunk.Code[offset]), op, offset)
		}
		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return bytecode.Value{}, vm.locate(fault(ErrBudgetExhausted, "limit %d", vm.maxSteps), op, offset)
		}
		vm.steps++
		if offset+op.InstructionLen() > len(chunk.Code) {
			return bytecode.Value{}, vm.locate(fault(ErrTruncatedOperand, "%d of %d operand bytes", len(chunk.Code)-offset-1, op.OperandLen()), op, offset)
		}
		frame.IP += op.InstructionLen()

		operand := -1
		switch op.OperandLen() {
		case 1:
			operand = int(chunk.Code[offset+1])
		case 2:
			v, _ := chunk.ReadUint16(offset + 1)
			operand = int(v)
		}
		if vm.trace != nil {
			vm.trace(vm.event(op, operand, offset))
		}

		if op == bytecode.OpReturn {
			result, err := vm.pop()
			if err != nil {
				return bytecode.Value{}, vm.locate(err, op, offset)
			}
			vm.stack = vm.stack[:frame.Base]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return result, nil
			}
			vm.stack = append(vm.stack, result)
			continue
		}

		if err := vm.step(frame, op, operand, offset); err != nil {
			return bytecode.Value{}, vm.locate(err, op, offset)
		}
	}
	return bytecode.Value{}, &RuntimeError{Err: ErrStackUnderflow, Detail: "no frames", RunID: vm.runID}
}

// step executes every opcode except Return. frame must not be used after
// a Call, which may move the frame stack.
func (vm *VM) step(frame *CallFrame, op bytecode.Opcode, operand, offset int) *RuntimeError {
	chunk := frame.Function.Chunk

	switch op {
	case bytecode.OpConst:
		v, ok := chunk.GetConstant(uint16(operand))
		if !ok {
			return fault(ErrConstantIndex, "index %d, pool has %d", operand, chunk.ConstantCount())
		}
		return vm.push(v)

	case bytecode.OpTrue:
		return vm.push(bytecode.BoolValue(true))

	case bytecode.OpFalse:
		return vm.push(bytecode.BoolValue(false))

	case bytecode.OpPop:
		_, err := vm.pop()
		return err

	case bytecode.OpGetLocal:
		slot := frame.Base + operand
		if slot >= len(vm.stack) {
			return fault(ErrStackUnderflow, "local %d beyond frame window of %d", operand, len(vm.stack)-frame.Base)
		}
		return vm.push(vm.stack[slot])

	case bytecode.OpSetLocal:
		slot := frame.Base + operand
		v, err := vm.peek()
		if err != nil {
			return err
		}
		if slot >= len(vm.stack) {
			return fault(ErrStackUnderflow, "local %d beyond frame window of %d", operand, len(vm.stack)-frame.Base)
		}
		vm.stack[slot] = v
		return nil

	case bytecode.OpDefineGlobal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.globals[uint16(operand)] = v
		return nil

	case bytecode.OpGetGlobal:
		v, ok := vm.globals[uint16(operand)]
		if !ok {
			return fault(ErrUndefinedGlobal, "global %d", operand)
		}
		return vm.push(v)

	case bytecode.OpSetGlobal:
		if _, ok := vm.globals[uint16(operand)]; !ok {
			return fault(ErrUndefinedGlobal, "global %d", operand)
		}
		v, err := vm.peek()
		if err != nil {
			return err
		}
		vm.globals[uint16(operand)] = v
		return nil

	case bytecode.OpJump, bytecode.OpLoop:
		return vm.jump(frame, op, offset, operand)

	case bytecode.OpJumpIfFalse:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		cond, ok := v.AsBool()
		if !ok {
			return fault(ErrTypeMismatch, "condition is %s, want Bool", v.Kind())
		}
		if !cond {
			return vm.jump(frame, op, offset, operand)
		}
		return nil

	case bytecode.OpCall:
		if operand >= len(vm.prog.Functions) {
			return fault(ErrUndefinedFunction, "function %d of %d", operand, len(vm.prog.Functions))
		}
		return vm.enter(vm.prog.Functions[operand])

	case bytecode.OpBoolNot:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		b, ok := v.AsBool()
		if !ok {
			return fault(ErrTypeMismatch, "BoolNot on %s", v.Kind())
		}
		return vm.push(bytecode.BoolValue(!b))
	}

	if binaryOps[op] {
		right, err := vm.pop()
		if err != nil {
			return err
		}
		left, err := vm.pop()
		if err != nil {
			return err
		}
		result, err := binary(op, left, right)
		if err != nil {
			return err
		}
		return vm.push(result)
	}

	return fault(ErrInvalidOpCode, "%s is not executable", op)
}

func (vm *VM) jump(frame *CallFrame, op bytecode.Opcode, offset, distance int) *RuntimeError {
	target := bytecode.JumpTarget(op, offset, uint16(distance))
	if target < 0 || target >= len(frame.Function.Chunk.Code) {
		return fault(ErrInvalidJumpTarget, "target %d outside %d code bytes", target, len(frame.Function.Chunk.Code))
	}
	frame.IP = target
	return nil
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v bytecode.Value) *RuntimeError {
	if len(vm.stack) >= vm.stackLimit {
		return fault(ErrStackOverflow, "limit %d", vm.stackLimit)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

// pop never crosses the current frame's base.
func (vm *VM) pop() (bytecode.Value, *RuntimeError) {
	v, err := vm.peek()
	if err != nil {
		return v, err
	}
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek() (bytecode.Value, *RuntimeError) {
	base := 0
	if len(vm.frames) > 0 {
		base = vm.frames[len(vm.frames)-1].Base
	}
	if len(vm.stack) <= base {
		return bytecode.Value{}, fault(ErrStackUnderflow, "frame window is empty")
	}
	return vm.stack[len(vm.stack)-1], nil
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// locate stamps err with the failing instruction and the frame snapshot.
func (vm *VM) locate(err *RuntimeError, op bytecode.Opcode, offset int) error {
	err.Op = op
	err.Offset = offset
	err.RunID = vm.runID
	if len(vm.frames) > 0 {
		top := &vm.frames[len(vm.frames)-1]
		err.Function = top.Function.Name
		err.Line = top.Function.Chunk.Line(offset)
	}
	err.Frames = vm.frameInfo(offset)
	return err
}

// frameInfo lists the active frames innermost first. Callers are reported at
// the Call instruction that suspended them.
func (vm *VM) frameInfo(offset int) []FrameInfo {
	infos := make([]FrameInfo, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		at := offset
		if i < len(vm.frames)-1 {
			at = f.IP - bytecode.OpCall.InstructionLen()
		}
		infos = append(infos, f.info(at))
	}
	return infos
}

func (vm *VM) event(op bytecode.Opcode, operand, offset int) TraceEvent {
	top := &vm.frames[len(vm.frames)-1]
	stack := make([]bytecode.Value, len(vm.stack))
	copy(stack, vm.stack)
	return TraceEvent{
		RunID:    vm.runID,
		Step:     vm.steps,
		Function: top.Function.Name,
		Offset:   offset,
		Line:     top.Function.Chunk.Line(offset),
		Op:       op,
		Operand:  operand,
		Stack:    stack,
		Frames:   vm.frameInfo(offset),
	}
}
