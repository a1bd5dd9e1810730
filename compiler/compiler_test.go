package compiler

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/tern/internal/asttest"
	"github.com/chazu/tern/pkg/ast"
	"github.com/chazu/tern/pkg/codegen"
	"github.com/chazu/tern/pkg/types"
	"github.com/chazu/tern/vm"
)

func TestCompile(t *testing.T) {
	a := ast.NewArena()
	sum := a.Infix(ast.Plus, a.Int64(4, ast.Line(1)), a.Int64(7, ast.Line(1)), ast.Line(1))

	prog, err := Compile(asttest.Single(a, sum))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := prog.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if !strings.Contains(prog.Disassemble(), "I64Add") {
		t.Errorf("disassembly missing I64Add:\n%s", prog.Disassemble())
	}
}

func TestCompileRejectsMixedTypes(t *testing.T) {
	// 3 + 2.0f64 fails before code generation.
	a := ast.NewArena()
	sum := a.Infix(ast.Plus, a.Int64(3, ast.Line(6)), a.Float64(2.0, ast.Line(6)), ast.Line(6))

	prog, err := Compile(asttest.Single(a, sum))
	if prog != nil {
		t.Error("got a program for an ill-typed unit")
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if cerr.Phase != PhaseResolve || cerr.Line != 6 {
		t.Errorf("error = %s line %d, want resolve line 6", cerr.Phase, cerr.Line)
	}
	if !errors.Is(err, types.ErrUnresolvedOperator) {
		t.Errorf("errors.Is(err, ErrUnresolvedOperator) = false")
	}
	if got := err.Error(); got != "resolve: line 6: no operator + for Int64 and Float64" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCompilePrefixPlusStopsAtResolve(t *testing.T) {
	a := ast.NewArena()
	p := a.Prefix(ast.PrefixPlus, a.Int64(1, ast.Line(3)), ast.Line(3))

	_, err := Compile(asttest.Single(a, p))
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	// Unary + has no signature, so the resolver rejects it first.
	if cerr.Phase != PhaseResolve || cerr.Line != 3 {
		t.Errorf("error = %s line %d, want resolve line 3", cerr.Phase, cerr.Line)
	}
	if errors.Is(err, codegen.ErrPrefixPlus) {
		t.Error("unary + reached code generation")
	}
}

func TestCompileEmptyBlock(t *testing.T) {
	a := ast.NewArena()
	a.SetRoot(a.Block(nil, ast.Line(1)))

	prog, err := Compile(ast.NewSyntax(a))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := prog.Functions[0].Chunk.InstructionCount(); got != 2 {
		t.Errorf("InstructionCount() = %d, want 2", got)
	}
}

func TestCompileUnknownRoot(t *testing.T) {
	a := ast.NewArena()
	a.SetRoot(4)

	_, err := Compile(ast.NewSyntax(a))
	if !errors.Is(err, ast.ErrUnknownNode) {
		t.Errorf("error = %v, want ErrUnknownNode", err)
	}
}

func TestCompileCache(t *testing.T) {
	build := func(line int) *ast.Syntax {
		a := ast.NewArena()
		e := a.Infix(ast.Mul, a.Int64(6, ast.Line(line)), a.Int64(7, ast.Line(line)), ast.Line(line))
		return asttest.Single(a, e)
	}

	c := New()
	first, err := c.Compile(build(1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compile(build(1))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("identical unit was compiled twice")
	}
	if c.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", c.CacheSize())
	}

	uncached := New(WithoutCache())
	p1, _ := uncached.Compile(build(1))
	p2, _ := uncached.Compile(build(1))
	if p1 == p2 {
		t.Error("WithoutCache returned a shared program")
	}
	if uncached.CacheSize() != 0 {
		t.Errorf("CacheSize() = %d, want 0", uncached.CacheSize())
	}
}

func TestCompileCacheKeepsLines(t *testing.T) {
	build := func(line int) *ast.Syntax {
		a := ast.NewArena()
		e := a.Infix(ast.Div, a.Uint64(10, ast.Line(line)), a.Uint64(0, ast.Line(line)), ast.Line(line))
		return asttest.Single(a, e)
	}

	c := New()
	if _, err := c.Compile(build(3)); err != nil {
		t.Fatal(err)
	}
	prog, err := c.Compile(build(40))
	if err != nil {
		t.Fatal(err)
	}
	if c.CacheSize() != 2 {
		t.Errorf("CacheSize() = %d, want 2", c.CacheSize())
	}

	_, err = vm.New().Execute(prog)
	var rerr *vm.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *vm.RuntimeError", err)
	}
	if !errors.Is(err, vm.ErrDivisionByZero) || rerr.Line != 40 {
		t.Errorf("error = %v at line %d, want division by zero at line 40", err, rerr.Line)
	}
}

func TestCompileCachedUnknownRoot(t *testing.T) {
	a := ast.NewArena()
	a.SetRoot(4)
	syn := ast.NewSyntax(a)

	_, cachedErr := New().Compile(syn)
	_, plainErr := New(WithoutCache()).Compile(syn)
	for _, err := range []error{cachedErr, plainErr} {
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Phase != PhaseResolve {
			t.Errorf("error = %v, want resolve phase", err)
		}
		if !errors.Is(err, ast.ErrUnknownNode) {
			t.Errorf("error = %v, want ErrUnknownNode", err)
		}
	}
}

func TestCompileRejectsCycles(t *testing.T) {
	a := ast.NewArena()
	self := ast.ExprID(a.ExpressionCount())
	loop := a.Infix(ast.Plus, self, self, ast.Line(2))
	syn := asttest.Single(a, loop)

	for _, c := range []*Compiler{New(), New(WithoutCache())} {
		if _, err := c.Compile(syn); !errors.Is(err, ast.ErrForwardReference) {
			t.Errorf("error = %v, want ErrForwardReference", err)
		}
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Phase: PhaseCompile, Err: codegen.ErrUnsupported}
	if got := err.Error(); got != "compile: unsupported operation" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCompileConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			a := ast.NewArena()
			e := a.Infix(ast.Mul, a.Int64(n, ast.Line(1)), a.Int64(2, ast.Line(1)), ast.Line(1))
			if _, err := c.Compile(asttest.Single(a, e)); err != nil {
				t.Error(err)
			}
		}(int64(i % 2))
	}
	wg.Wait()
	if c.CacheSize() != 2 {
		t.Errorf("CacheSize() = %d, want 2", c.CacheSize())
	}
}
