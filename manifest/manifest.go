// Package manifest handles tern.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/tern/vm"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "tern.toml"

// Manifest represents a tern.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	VM      VMConfig    `toml:"vm"`
	Store   StoreConfig `toml:"store"`

	// Dir is the directory containing the tern.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// VMConfig bounds execution. Zero limits fall back to the VM defaults.
type VMConfig struct {
	MaxSteps   int  `toml:"max_steps"`
	StackLimit int  `toml:"stack_limit"`
	FrameLimit int  `toml:"frame_limit"`
	Trace      bool `toml:"trace"`
}

// StoreConfig locates the program cache. An empty path disables it.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no tern.toml exists.
func Default(dir string) *Manifest {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a tern.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()

	return &m, nil
}

// FindAndLoad walks up from startDir to find a tern.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	var errs []error
	if m.VM.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("vm.max_steps must not be negative, got %d", m.VM.MaxSteps))
	}
	if m.VM.StackLimit < 0 {
		errs = append(errs, fmt.Errorf("vm.stack_limit must not be negative, got %d", m.VM.StackLimit))
	}
	if m.VM.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("vm.frame_limit must not be negative, got %d", m.VM.FrameLimit))
	}
	return errors.Join(errs...)
}

func (m *Manifest) applyDefaults() {
	if m.Project.Name == "" && m.Dir != "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.VM.StackLimit == 0 {
		m.VM.StackLimit = vm.DefaultStackLimit
	}
	if m.VM.FrameLimit == 0 {
		m.VM.FrameLimit = vm.DefaultFrameLimit
	}
}

// StorePath returns the absolute path of the program cache, or "" when the
// cache is disabled.
func (m *Manifest) StorePath() string {
	if m.Store.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}

// VMOptions converts the [vm] section into VM options. Tracing writes each
// instruction to log at debug level.
func (m *Manifest) VMOptions(log commonlog.Logger) []vm.Option {
	opts := []vm.Option{
		vm.WithMaxSteps(m.VM.MaxSteps),
		vm.WithStackLimit(m.VM.StackLimit),
		vm.WithFrameLimit(m.VM.FrameLimit),
	}
	if log != nil {
		opts = append(opts, vm.WithLogger(log))
		if m.VM.Trace {
			opts = append(opts, vm.WithTrace(vm.LogTracer(log)))
		}
	}
	return opts
}
