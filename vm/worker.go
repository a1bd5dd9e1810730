package vm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/tern/pkg/bytecode"
)

// ErrWorkerStopped is returned for work submitted after Stop.
var ErrWorkerStopped = errors.New("vm worker stopped")

// workRequest is one program to run on the worker goroutine.
type workRequest struct {
	prog *bytecode.Program
	done chan workResult
}

type workResult struct {
	value bytecode.Value
	err   error
}

// Worker serializes runs of one VM through a single goroutine so that
// several goroutines can share it.
type Worker struct {
	vm       *VM
	requests chan workRequest
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker around a VM built from opts and starts its
// goroutine.
func NewWorker(opts ...Option) *Worker {
	w := &Worker{
		vm:       New(opts...),
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.prog)
		case <-w.quit:
			return
		}
	}
}

// execute runs one program, turning a panic into an error.
func (w *Worker) execute(prog *bytecode.Program) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("vm panic: %v", r)
		}
	}()
	result.value, result.err = w.vm.Execute(prog)
	return result
}

// Execute submits prog and blocks until it has run or ctx is done. A run
// that has started is not interrupted; only the wait is abandoned.
func (w *Worker) Execute(ctx context.Context, prog *bytecode.Program) (bytecode.Value, error) {
	req := workRequest{prog: prog, done: make(chan workResult, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return bytecode.Value{}, ErrWorkerStopped
	case <-ctx.Done():
		return bytecode.Value{}, ctx.Err()
	}

	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		return bytecode.Value{}, ErrWorkerStopped
	case <-ctx.Done():
		return bytecode.Value{}, ctx.Err()
	}
}

// Run is Execute for programs returning Int64.
func (w *Worker) Run(ctx context.Context, prog *bytecode.Program) (int64, error) {
	v, err := w.Execute(ctx, prog)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsInt64()
	if !ok {
		e := fault(ErrTypeMismatch, "entry function returned %s, want Int64", v.Kind())
		e.Op = bytecode.OpReturn
		return 0, e
	}
	return n, nil
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
