// Package vm executes tern bytecode programs.
//
// The VM is a loop over a stack of call frames sharing one operand stack.
// Each frame records the function it runs, its instruction pointer, and the
// stack depth at which its window starts. A frame can never pop below its
// base, and Return drops the frame's whole window before handing the result
// to the caller.
//
// # Errors
//
// Every failure stops the run and is returned as a *RuntimeError naming the
// opcode, function, offset and source line. The Err field holds one of the
// sentinel errors below, so callers can match with errors.Is:
//
//	_, err := vm.New().Run(prog)
//	if errors.Is(err, vm.ErrDivisionByZero) { ... }
//
// Integer division by zero is an error. Float64 division follows IEEE-754
// and yields ±Inf or NaN. Integer arithmetic wraps on overflow.
//
// # Tracing
//
// WithTrace installs a hook called before each instruction with the opcode,
// its operand, and snapshots of the operand and frame stacks. LogTracer
// adapts the hook to a commonlog.Logger.
//
// A VM is not safe for concurrent use. Each Run starts from empty stacks and
// globals, so runs never observe each other.
package vm
