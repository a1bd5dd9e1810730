// Package compiler runs the back-end pipeline over a parsed syntax unit:
// type resolution followed by code generation. A failure in either phase
// stops the pipeline; no partial program is ever returned.
package compiler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/tern/compiler/hash"
	"github.com/chazu/tern/pkg/ast"
	"github.com/chazu/tern/pkg/bytecode"
	"github.com/chazu/tern/pkg/codegen"
	"github.com/chazu/tern/pkg/types"
)

var log = commonlog.GetLogger("tern.compiler")

// Phase names the pipeline stage an error came from.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseCompile Phase = "compile"
)

// Error is a compilation failure tagged with its phase and, where known,
// the source line of the offending node.
type Error struct {
	Phase Phase
	Line  int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Compiler turns syntax units into programs. Programs are cached by the
// content hash of their tree and a hash of its source lines, so recompiling
// an identical unit returns the same *bytecode.Program; callers must treat
// programs as read-only. A Compiler is safe for concurrent use.
type Compiler struct {
	resolver *types.Resolver
	gen      *codegen.Generator

	mu    sync.RWMutex
	cache map[cacheKey]*bytecode.Program
}

// cacheKey separates units that share a tree but not a line table. Programs
// carry their lines into runtime errors.
type cacheKey struct {
	tree  [32]byte
	lines [32]byte
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithEnv resolves operators against env instead of the default tables.
func WithEnv(env *types.Env) Option {
	return func(c *Compiler) {
		c.resolver = types.NewResolver(env)
	}
}

// WithoutCache disables the program cache.
func WithoutCache() Option {
	return func(c *Compiler) {
		c.cache = nil
	}
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		resolver: types.NewResolver(nil),
		gen:      codegen.New(),
		cache:    make(map[cacheKey]*bytecode.Program),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile resolves and compiles syn.
func (c *Compiler) Compile(syn *ast.Syntax) (*bytecode.Program, error) {
	var key cacheKey
	if c.cache != nil {
		var err error
		if key, err = keyOf(syn); err != nil {
			// The tree could not be walked; report it as the resolver would.
			return nil, &Error{Phase: PhaseResolve, Err: fmt.Errorf("syntax lookup: %w", err)}
		}
		c.mu.RLock()
		prog, ok := c.cache[key]
		c.mu.RUnlock()
		if ok {
			log.Debugf("cache hit %x", key.tree[:8])
			return prog, nil
		}
	}

	tm, err := c.resolver.ResolveSyntax(syn)
	if err != nil {
		return nil, &Error{Phase: PhaseResolve, Line: lineOf(err), Err: err}
	}
	log.Debugf("resolved %d expressions", len(tm))

	prog, err := c.gen.CompileProgram(syn, tm)
	if err != nil {
		return nil, &Error{Phase: PhaseCompile, Line: lineOf(err), Err: err}
	}
	entry, _ := prog.EntryFunction()
	log.Debugf("compiled %d bytes, %d constants", entry.Chunk.Len(), entry.Chunk.ConstantCount())

	if c.cache != nil {
		c.mu.Lock()
		c.cache[key] = prog
		c.mu.Unlock()
	}
	return prog, nil
}

// CacheSize returns the number of cached programs.
func (c *Compiler) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Compile resolves and compiles syn with the default environment.
func Compile(syn *ast.Syntax) (*bytecode.Program, error) {
	return New(WithoutCache()).Compile(syn)
}

func keyOf(syn *ast.Syntax) (cacheKey, error) {
	tree, err := hash.HashSyntax(syn)
	if err != nil {
		return cacheKey{}, err
	}
	lines, err := hash.HashLines(syn)
	if err != nil {
		return cacheKey{}, err
	}
	return cacheKey{tree: tree, lines: lines}, nil
}

func lineOf(err error) int {
	var unresolved *types.UnresolvedOperatorError
	if errors.As(err, &unresolved) {
		return unresolved.Line
	}
	var unsupported *codegen.UnsupportedError
	if errors.As(err, &unsupported) {
		return unsupported.Line
	}
	var internal *codegen.InternalError
	if errors.As(err, &internal) {
		return internal.Line
	}
	return 0
}
