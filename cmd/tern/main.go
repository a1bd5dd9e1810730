// Tern CLI - loads a compiled program and disassembles or runs it
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/tern/manifest"
	"github.com/chazu/tern/pkg/bytecode"
	"github.com/chazu/tern/store"
	"github.com/chazu/tern/vm"
)

var log = commonlog.GetLogger("tern")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	config  string
	disasm  bool
	trace   bool
	verbose bool
	logPath string
	save    bool
	hash    string
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("tern", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", ".", "Directory to search upward for tern.toml")
	fs.BoolVar(&opts.disasm, "disasm", false, "Print the disassembly instead of running")
	fs.BoolVar(&opts.trace, "trace", false, "Log every executed instruction (implies -v)")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.StringVar(&opts.logPath, "log", "", "Write log output to this file instead of stderr")
	fs.BoolVar(&opts.save, "save", false, "Store the program in the configured store and print its hash")
	fs.StringVar(&opts.hash, "hash", "", "Load the program with this hash from the store instead of a file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tern [options] program.tnbc\n")
		fmt.Fprintf(stderr, "       tern [options] -hash <hex>\n\n")
		fmt.Fprintf(stderr, "Loads a compiled program (TNBC or CBOR) and runs it, printing its value.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tern sum.tnbc               # Run, print the result\n")
		fmt.Fprintf(stderr, "  tern -disasm sum.tnbc       # List instructions\n")
		fmt.Fprintf(stderr, "  tern -save sum.tnbc         # Cache in the store, print the hash\n")
		fmt.Fprintf(stderr, "  tern -trace -hash 56694b... # Run a stored program with tracing\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	verbosity := -1
	if opts.verbose || opts.trace {
		verbosity = 2
	}
	if opts.logPath != "" {
		commonlog.Configure(verbosity, &opts.logPath)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	if err := execute(opts, fs.Args(), stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func execute(opts options, paths []string, stdout io.Writer) error {
	m, err := manifest.FindAndLoad(opts.config)
	if err != nil {
		return err
	}
	if m == nil {
		m = manifest.Default(opts.config)
	}
	if opts.trace {
		m.VM.Trace = true
	}
	log.Debugf("project %s", m.Project.Name)

	var programs store.Store
	if path := m.StorePath(); path != "" {
		db, err := store.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer db.Close()
		programs = db
	} else {
		programs = store.NewMemoryStore()
	}

	prog, err := loadProgram(opts, paths, programs)
	if err != nil {
		return err
	}

	if opts.save {
		h, err := programs.Put(prog)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, h)
		if m.StorePath() == "" {
			log.Warning("no [store] path configured; the program was not persisted")
		}
		return nil
	}

	if opts.disasm {
		fmt.Fprint(stdout, prog.Disassemble())
		return nil
	}

	machine := vm.New(m.VMOptions(commonlog.GetLogger("tern.vm"))...)
	result, err := machine.Execute(prog)
	if err != nil {
		return err
	}
	log.Infof("run %s finished in %d steps", machine.RunID(), machine.Steps())
	fmt.Fprintln(stdout, result)
	return nil
}

func loadProgram(opts options, paths []string, programs store.Store) (*bytecode.Program, error) {
	if opts.hash != "" {
		if len(paths) > 0 {
			return nil, errors.New("-hash and a program file are mutually exclusive")
		}
		h, err := store.ParseHash(opts.hash)
		if err != nil {
			return nil, err
		}
		return programs.Get(h)
	}

	if len(paths) != 1 {
		return nil, fmt.Errorf("expected one program file, got %d", len(paths))
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, err
	}
	return decodeProgram(data)
}

// decodeProgram accepts either encoding, told apart by the TNBC magic.
func decodeProgram(data []byte) (*bytecode.Program, error) {
	if bytes.HasPrefix(data, bytecode.BytecodeMagic) {
		return bytecode.Deserialize(data)
	}
	return bytecode.UnmarshalProgramCBOR(data)
}
