package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/export"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/linker"
	"github.com/wippyai/wasm-tracer/runtime"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

type options struct {
	wasmFile    string
	funcName    string
	args        string
	public      string
	private     string
	phantoms    string
	out         string
	maxPages    uint
	count       bool
	list        bool
	interactive bool
	verbose     bool
}

func main() {
	var o options
	flag.StringVar(&o.wasmFile, "wasm", "", "Path to core wasm module")
	flag.StringVar(&o.funcName, "func", "", "Exported function to trace (default: first of _start, run, main)")
	flag.StringVar(&o.args, "args", "", "Function arguments as raw integers (comma-separated)")
	flag.StringVar(&o.public, "input", "", "Public inputs for wasm_input (comma-separated)")
	flag.StringVar(&o.private, "private", "", "Private inputs for wasm_input (comma-separated)")
	flag.StringVar(&o.phantoms, "phantom", "", "Phantom function name patterns (comma-separated regexps)")
	flag.StringVar(&o.out, "out", "", "Write tables as JSON Lines to this file (- for stdout)")
	flag.UintVar(&o.maxPages, "max-pages", 0, "Linear memory limit in pages (0 for the wasm limit)")
	flag.BoolVar(&o.count, "count", false, "Only count phantom steps")
	flag.BoolVar(&o.list, "list", false, "List exported functions and exit")
	flag.BoolVar(&o.interactive, "i", false, "Browse the recorded tables in a TUI")
	flag.BoolVar(&o.verbose, "v", false, "Debug logging")
	flag.Parse()

	if o.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasmtrace -wasm <file.wasm> [-func name] [-args 1,2] [-input 1,2] [-phantom ^get_]")
		fmt.Fprintln(os.Stderr, "       wasmtrace -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       wasmtrace -wasm <file.wasm> -count")
		fmt.Fprintln(os.Stderr, "       wasmtrace -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	log := newLogger(o.verbose)
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), o, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	for _, set := range []func(*zap.Logger){
		tracer.SetLogger, host.SetLogger, linker.SetLogger,
		engine.SetLogger, runtime.SetLogger, export.SetLogger,
	} {
		set(log)
	}
	return log
}

func run(ctx context.Context, o options, log *zap.Logger) error {
	data, err := os.ReadFile(o.wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	cfg, args, err := o.config(log)
	if err != nil {
		return err
	}
	mod, err := runtime.New(cfg).Load(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	if o.list {
		image, err := mod.Link(o.wasmFile)
		if err != nil {
			return fmt.Errorf("link: %w", err)
		}
		listExports(os.Stdout, mod.Parsed(), image.Memory())
		return nil
	}

	fn := o.funcName
	if fn == "" {
		if fn = defaultEntry(mod.Parsed()); fn == "" {
			return fmt.Errorf("no function specified and no common entry point found; use -func")
		}
	}

	if o.count {
		steps, err := mod.CountPhantomSteps(ctx, fn, args...)
		if err != nil {
			return fmt.Errorf("count %s: %w", fn, err)
		}
		fmt.Printf("Phantom steps of %s: %d\n", fn, steps)
		return nil
	}

	res, err := mod.TraceCall(ctx, fn, args...)
	if err != nil {
		return fmt.Errorf("trace %s: %w", fn, err)
	}

	if o.out != "" {
		if err := writeTables(o.out, res.Tables); err != nil {
			return err
		}
	}

	if o.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(o.wasmFile, fn, res)
	}

	if o.out != "-" {
		printSummary(fn, res)
	}
	return nil
}

func (o options) config(log *zap.Logger) (runtime.Config, []uint64, error) {
	public, err := parseValues(o.public)
	if err != nil {
		return runtime.Config{}, nil, fmt.Errorf("-input: %w", err)
	}
	private, err := parseValues(o.private)
	if err != nil {
		return runtime.Config{}, nil, fmt.Errorf("-private: %w", err)
	}
	args, err := parseValues(o.args)
	if err != nil {
		return runtime.Config{}, nil, fmt.Errorf("-args: %w", err)
	}
	cfg := runtime.Config{
		Logger:  log,
		Public:  public,
		Private: private,
		Trace:   true,
		Engine: engine.Config{
			PhantomFunctions: splitList(o.phantoms),
			MemoryLimitPages: uint32(o.maxPages),
		},
		Linker: linker.Options{MemoryLimitPages: uint32(o.maxPages)},
	}
	return cfg, args, nil
}

func writeTables(path string, t tracer.Tables) error {
	var w *export.Writer
	if path == "-" {
		w = export.NewWriter(os.Stdout)
	} else {
		var err error
		if w, err = export.NewFileWriter(path); err != nil {
			return err
		}
	}
	if err := w.WriteTables(t); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func printSummary(fn string, res *runtime.TwoPassResult) {
	fmt.Printf("Result of %s: %v\n", fn, res.Results)
	if len(res.Outputs) > 0 {
		fmt.Printf("Outputs: %v\n", res.Outputs)
	}
	fmt.Printf("Instructions: %d\n", len(res.Tables.Instructions))
	fmt.Printf("Init memory:  %d\n", len(res.Tables.InitMemory))
	fmt.Printf("Execution:    %d (counted %d)\n", len(res.Tables.Execution), res.Counted)
	fmt.Printf("Frames:       %d\n", len(res.Tables.Frames))
}

func listExports(w io.Writer, m *wasm.Module, mem *linker.Memory) {
	fmt.Fprintf(w, "Exported functions:\n")
	for _, exp := range m.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		sig, _ := m.FuncTypeOf(exp.Idx)
		fmt.Fprintf(w, "  %s%s\n", exp.Name, sig)
	}
	if mem == nil {
		return
	}
	if limit, ok := mem.MaxPages(); ok {
		fmt.Fprintf(w, "Memory: %d pages, max %d\n", mem.InitialPages(), limit)
	} else {
		fmt.Fprintf(w, "Memory: %d pages, no max\n", mem.InitialPages())
	}
}

func defaultEntry(m *wasm.Module) string {
	for _, name := range []string{"_start", "run", "main"} {
		if _, ok := m.ExportedFunc(name); ok {
			return name
		}
	}
	var only string
	for _, exp := range m.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		if only != "" {
			return ""
		}
		only = exp.Name
	}
	return only
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseValues reads comma-separated integers as raw wasm values.
// Negative numbers are stored in two's complement.
func parseValues(s string) ([]uint64, error) {
	parts := splitList(s)
	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		if strings.HasPrefix(part, "-") {
			v, err := strconv.ParseInt(part, 0, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, uint64(v))
			continue
		}
		v, err := strconv.ParseUint(part, 0, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
