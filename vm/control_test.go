package vm

import (
	"errors"
	"testing"

	"github.com/chazu/tern/pkg/bytecode"
)

func TestCallWithLocals(t *testing.T) {
	// add(a, b) = a + b; main = add(40, 2)
	add := bytecode.NewFunction("add", 2)
	add.Chunk.EmitByteOperand(bytecode.OpGetLocal, 0, 10)
	add.Chunk.EmitByteOperand(bytecode.OpGetLocal, 1, 10)
	add.Chunk.AddInstruction(bytecode.OpI64Add, 10)
	add.Chunk.AddInstruction(bytecode.OpReturn, 10)

	main := bytecode.NewFunction("main", 0)
	main.Chunk.AddConst(bytecode.Int64Value(40), 1)
	main.Chunk.AddConst(bytecode.Int64Value(2), 1)
	main.Chunk.EmitOperand(bytecode.OpCall, 1, 1)
	main.Chunk.AddInstruction(bytecode.OpReturn, 1)

	var maxFrames int
	vm := New(WithTrace(func(e TraceEvent) {
		if len(e.Frames) > maxFrames {
			maxFrames = len(e.Frames)
		}
	}))
	got, err := vm.Run(program(main, add))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 42 {
		t.Errorf("Run() = %d, want 42", got)
	}
	if maxFrames != 2 {
		t.Errorf("max frame depth = %d, want 2", maxFrames)
	}
}

func TestSetLocal(t *testing.T) {
	// twice(x): x = x + x; return x
	twice := bytecode.NewFunction("twice", 1)
	c := twice.Chunk
	c.EmitByteOperand(bytecode.OpGetLocal, 0, 1)
	c.EmitByteOperand(bytecode.OpGetLocal, 0, 1)
	c.AddInstruction(bytecode.OpI64Add, 1)
	c.EmitByteOperand(bytecode.OpSetLocal, 0, 1)
	c.AddInstruction(bytecode.OpPop, 1)
	c.EmitByteOperand(bytecode.OpGetLocal, 0, 1)
	c.AddInstruction(bytecode.OpReturn, 1)

	main := bytecode.NewFunction("main", 0)
	main.Chunk.AddConst(bytecode.Int64Value(21), 1)
	main.Chunk.EmitOperand(bytecode.OpCall, 1, 1)
	main.Chunk.AddInstruction(bytecode.OpReturn, 1)

	got, err := New().Run(program(main, twice))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 42 {
		t.Errorf("Run() = %d, want 42", got)
	}
}

func TestGlobals(t *testing.T) {
	// g0 = 5; g0 = g0 + 1; g0
	main := bytecode.NewFunction("main", 0)
	c := main.Chunk
	c.AddConst(bytecode.Int64Value(5), 1)
	c.EmitOperand(bytecode.OpDefineGlobal, 0, 1)
	c.EmitOperand(bytecode.OpGetGlobal, 0, 2)
	c.AddConst(bytecode.Int64Value(1), 2)
	c.AddInstruction(bytecode.OpI64Add, 2)
	c.EmitOperand(bytecode.OpSetGlobal, 0, 2)
	c.AddInstruction(bytecode.OpPop, 2)
	c.EmitOperand(bytecode.OpGetGlobal, 0, 3)
	c.AddInstruction(bytecode.OpReturn, 3)

	vm := New()
	got, err := vm.Run(program(main))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 6 {
		t.Errorf("Run() = %d, want 6", got)
	}

	// Globals do not survive into the next run.
	read := bytecode.NewFunction("main", 0)
	read.Chunk.EmitOperand(bytecode.OpGetGlobal, 0, 1)
	read.Chunk.AddInstruction(bytecode.OpReturn, 1)
	if _, err := vm.Run(program(read)); !errors.Is(err, ErrUndefinedGlobal) {
		t.Errorf("second run error = %v, want ErrUndefinedGlobal", err)
	}
}

func TestLoop(t *testing.T) {
	// i = 0; while i < 5 { i = i + 1 }; i
	main := bytecode.NewFunction("main", 0)
	c := main.Chunk
	c.AddConst(bytecode.Int64Value(0), 1)
	c.EmitOperand(bytecode.OpDefineGlobal, 0, 1)

	loopStart := c.Len()
	c.EmitOperand(bytecode.OpGetGlobal, 0, 2)
	c.AddConst(bytecode.Int64Value(5), 2)
	c.AddInstruction(bytecode.OpI64Lt, 2)
	exit := c.EmitJump(bytecode.OpJumpIfFalse, 2)

	c.EmitOperand(bytecode.OpGetGlobal, 0, 3)
	c.AddConst(bytecode.Int64Value(1), 3)
	c.AddInstruction(bytecode.OpI64Add, 3)
	c.EmitOperand(bytecode.OpSetGlobal, 0, 3)
	c.AddInstruction(bytecode.OpPop, 3)
	if err := c.EmitLoop(loopStart, 3); err != nil {
		t.Fatal(err)
	}

	if err := c.PatchJump(exit); err != nil {
		t.Fatal(err)
	}
	c.EmitOperand(bytecode.OpGetGlobal, 0, 4)
	c.AddInstruction(bytecode.OpReturn, 4)

	prog := program(main)
	if err := prog.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got, err := New().Run(prog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 5 {
		t.Errorf("Run() = %d, want 5", got)
	}
}

func TestJump(t *testing.T) {
	// Jump over a Const that would change the result.
	main := bytecode.NewFunction("main", 0)
	c := main.Chunk
	c.AddConst(bytecode.Int64Value(1), 1)
	skip := c.EmitJump(bytecode.OpJump, 1)
	c.AddInstruction(bytecode.OpPop, 1)
	c.AddConst(bytecode.Int64Value(99), 1)
	if err := c.PatchJump(skip); err != nil {
		t.Fatal(err)
	}
	c.AddInstruction(bytecode.OpReturn, 1)

	got, err := New().Run(program(main))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != 1 {
		t.Errorf("Run() = %d, want 1", got)
	}
}

func TestRuntimeErrors(t *testing.T) {
	chunk := func(build func(c *bytecode.Chunk)) *bytecode.Program {
		fn := bytecode.NewFunction("main", 0)
		build(fn.Chunk)
		return program(fn)
	}

	tests := []struct {
		name string
		prog *bytecode.Program
		opts []Option
		want error
	}{
		{"pop empty", chunk(func(c *bytecode.Chunk) {
			c.AddInstruction(bytecode.OpPop, 1)
		}), nil, ErrStackUnderflow},
		{"return empty", chunk(func(c *bytecode.Chunk) {
			c.AddInstruction(bytecode.OpReturn, 1)
		}), nil, ErrStackUnderflow},
		{"unknown opcode", chunk(func(c *bytecode.Chunk) {
			c.Code = append(c.Code, 0xEE)
			c.Lines = append(c.Lines, 1)
		}), nil, ErrInvalidOpCode},
		{"truncated operand", chunk(func(c *bytecode.Chunk) {
			c.Code = append(c.Code, byte(bytecode.OpConst), 0)
			c.Lines = append(c.Lines, 1, 1)
		}), nil, ErrTruncatedOperand},
		{"constant index", chunk(func(c *bytecode.Chunk) {
			c.EmitOperand(bytecode.OpConst, 3, 1)
		}), nil, ErrConstantIndex},
		{"jump past end", chunk(func(c *bytecode.Chunk) {
			c.EmitOperand(bytecode.OpJump, 100, 1)
		}), nil, ErrInvalidJumpTarget},
		{"loop before start", chunk(func(c *bytecode.Chunk) {
			c.EmitOperand(bytecode.OpLoop, 50, 1)
		}), nil, ErrInvalidJumpTarget},
		{"undefined function", chunk(func(c *bytecode.Chunk) {
			c.EmitOperand(bytecode.OpCall, 7, 1)
		}), nil, ErrUndefinedFunction},
		{"undefined global", chunk(func(c *bytecode.Chunk) {
			c.EmitOperand(bytecode.OpGetGlobal, 2, 1)
		}), nil, ErrUndefinedGlobal},
		{"set undefined global", chunk(func(c *bytecode.Chunk) {
			c.AddInstruction(bytecode.OpTrue, 1)
			c.EmitOperand(bytecode.OpSetGlobal, 2, 1)
		}), nil, ErrUndefinedGlobal},
		{"type mismatch", chunk(func(c *bytecode.Chunk) {
			c.AddConst(bytecode.Float64Value(1), 1)
			c.AddConst(bytecode.Float64Value(2), 1)
			c.AddInstruction(bytecode.OpI64Add, 1)
		}), nil, ErrTypeMismatch},
		{"not on int", chunk(func(c *bytecode.Chunk) {
			c.AddConst(bytecode.Int64Value(1), 1)
			c.AddInstruction(bytecode.OpBoolNot, 1)
		}), nil, ErrTypeMismatch},
		{"branch on int", chunk(func(c *bytecode.Chunk) {
			c.AddConst(bytecode.Int64Value(0), 1)
			c.EmitOperand(bytecode.OpJumpIfFalse, 0, 1)
			c.AddInstruction(bytecode.OpTrue, 1)
		}), nil, ErrTypeMismatch},
		{"local beyond window", chunk(func(c *bytecode.Chunk) {
			c.EmitByteOperand(bytecode.OpGetLocal, 0, 1)
		}), nil, ErrStackUnderflow},
		{"end of code", chunk(func(c *bytecode.Chunk) {
			c.AddInstruction(bytecode.OpTrue, 1)
		}), nil, ErrEndOfCode},
		{"stack overflow", chunk(func(c *bytecode.Chunk) {
			c.AddInstruction(bytecode.OpTrue, 1)
			c.AddInstruction(bytecode.OpTrue, 1)
			c.AddInstruction(bytecode.OpTrue, 1)
		}), []Option{WithStackLimit(2)}, ErrStackOverflow},
		{"budget", chunk(func(c *bytecode.Chunk) {
			c.EmitLoop(0, 1)
		}), []Option{WithMaxSteps(100)}, ErrBudgetExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...).Execute(tt.prog)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var rerr *RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("error %T is not *RuntimeError", err)
			}
			if rerr.Function != "main" {
				t.Errorf("error located in %q, want main", rerr.Function)
			}
			// Past the end there is no line to report.
			if tt.want != ErrEndOfCode && rerr.Line != 1 {
				t.Errorf("error at line %d, want 1", rerr.Line)
			}
		})
	}
}

func TestBudgetCountsDispatches(t *testing.T) {
	main := bytecode.NewFunction("main", 0)
	main.Chunk.AddInstruction(bytecode.OpTrue, 1)
	main.Chunk.AddInstruction(bytecode.OpReturn, 1)

	vm := New(WithMaxSteps(2))
	if _, err := vm.Execute(program(main)); err != nil {
		t.Fatalf("Execute with exact budget: %v", err)
	}
	if vm.Steps() != 2 {
		t.Errorf("Steps() = %d, want 2", vm.Steps())
	}

	if _, err := New(WithMaxSteps(1)).Execute(program(main)); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("error = %v, want ErrBudgetExhausted", err)
	}
}

func TestCallErrors(t *testing.T) {
	t.Run("recursion", func(t *testing.T) {
		// loop() = loop()
		main := bytecode.NewFunction("main", 0)
		main.Chunk.EmitOperand(bytecode.OpCall, 0, 1)
		main.Chunk.AddInstruction(bytecode.OpReturn, 1)

		_, err := New(WithFrameLimit(8)).Execute(program(main))
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || !errors.Is(err, ErrFrameOverflow) {
			t.Fatalf("error = %v, want ErrFrameOverflow", err)
		}
		if len(rerr.Frames) != 8 {
			t.Errorf("len(Frames) = %d, want 8", len(rerr.Frames))
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		pair := bytecode.NewFunction("pair", 2)
		pair.Chunk.AddInstruction(bytecode.OpTrue, 1)
		pair.Chunk.AddInstruction(bytecode.OpReturn, 1)

		main := bytecode.NewFunction("main", 0)
		main.Chunk.AddInstruction(bytecode.OpTrue, 1)
		main.Chunk.EmitOperand(bytecode.OpCall, 1, 1)
		main.Chunk.AddInstruction(bytecode.OpReturn, 1)

		if _, err := New().Execute(program(main, pair)); !errors.Is(err, ErrStackUnderflow) {
			t.Errorf("error = %v, want ErrStackUnderflow", err)
		}
	})

	t.Run("callee pops below its base", func(t *testing.T) {
		greedy := bytecode.NewFunction("greedy", 0)
		greedy.Chunk.AddInstruction(bytecode.OpPop, 7)
		greedy.Chunk.AddInstruction(bytecode.OpReturn, 7)

		main := bytecode.NewFunction("main", 0)
		main.Chunk.AddInstruction(bytecode.OpTrue, 1)
		main.Chunk.EmitOperand(bytecode.OpCall, 1, 2)
		main.Chunk.AddInstruction(bytecode.OpReturn, 2)

		_, err := New().Execute(program(main, greedy))
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || !errors.Is(err, ErrStackUnderflow) {
			t.Fatalf("error = %v, want ErrStackUnderflow", err)
		}
		if rerr.Function != "greedy" || rerr.Line != 7 {
			t.Errorf("error at %s line %d, want greedy line 7", rerr.Function, rerr.Line)
		}
		want := []FrameInfo{
			{Function: "greedy", Offset: 0, Line: 7},
			{Function: "main", Offset: 1, Line: 2},
		}
		if len(rerr.Frames) != len(want) {
			t.Fatalf("Frames = %v, want %v", rerr.Frames, want)
		}
		for i := range want {
			if rerr.Frames[i] != want[i] {
				t.Errorf("Frames[%d] = %v, want %v", i, rerr.Frames[i], want[i])
			}
		}
	})

	t.Run("entry with arguments", func(t *testing.T) {
		main := bytecode.NewFunction("main", 1)
		main.Chunk.AddInstruction(bytecode.OpTrue, 1)
		main.Chunk.AddInstruction(bytecode.OpReturn, 1)

		m := New()
		if _, err := m.Execute(program(main)); !errors.Is(err, ErrStackUnderflow) {
			t.Errorf("error = %v, want ErrStackUnderflow", err)
		}
		if m.prog != nil {
			t.Error("failed run kept its program")
		}
	})
}

func TestInvalidPrograms(t *testing.T) {
	if _, err := New().Execute(nil); !errors.Is(err, ErrNilProgram) {
		t.Errorf("nil program: %v, want ErrNilProgram", err)
	}
	if _, err := New().Run(bytecode.NewProgram()); !errors.Is(err, ErrUndefinedFunction) {
		t.Errorf("empty program: %v, want ErrUndefinedFunction", err)
	}
}
