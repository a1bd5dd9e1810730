package vm

import "github.com/tliron/commonlog"

const (
	DefaultStackLimit = 1 << 16
	DefaultFrameLimit = 1024
)

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithMaxSteps bounds the number of instructions a run may dispatch.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(vm *VM) {
		vm.maxSteps = n
	}
}

// WithStackLimit sets the maximum operand stack depth.
func WithStackLimit(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stackLimit = n
		}
	}
}

// WithFrameLimit sets the maximum call depth.
func WithFrameLimit(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.frameLimit = n
		}
	}
}

// WithTrace installs a hook called before every instruction.
func WithTrace(hook TraceHook) Option {
	return func(vm *VM) {
		vm.trace = hook
	}
}

// WithLogger sets a custom logger.
func WithLogger(log commonlog.Logger) Option {
	return func(vm *VM) {
		if log != nil {
			vm.log = log
		}
	}
}
