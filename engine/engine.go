package engine

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/wasm"
)

const instrumentationName = "github.com/wippyai/wasm-tracer/engine"

// Config holds configuration for engine creation
type Config struct {
	// TracerProvider receives one span per exported call. nil disables spans.
	TracerProvider trace.TracerProvider

	// PhantomFunctions are regular expressions matched against function
	// debug names and export names. A matching function is traced as a
	// phantom: its body is replaced in the trace by a fetch from wasm_input.
	PhantomFunctions []string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// Engine runs guest modules on wazero's interpreter. Host functions of the
// registry are exported as wazero host modules, one per import module name.
type Engine struct {
	runtime  wazero.Runtime
	hosts    *host.Registry
	otel     trace.Tracer
	phantoms []*regexp.Regexp
}

// New creates an engine and instantiates the host modules of hosts.
func New(ctx context.Context, hosts *host.Registry, cfg Config) (*Engine, error) {
	if hosts == nil {
		hosts = host.NewRegistry()
	}

	phantoms := make([]*regexp.Regexp, 0, len(cfg.PhantomFunctions))
	for _, expr := range cfg.PhantomFunctions {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
				Path("phantom").
				Value(expr).
				Cause(err).
				Detail("compile phantom pattern").
				Build()
		}
		phantoms = append(phantoms, re)
	}

	provider := cfg.TracerProvider
	if provider == nil {
		provider = noop.NewTracerProvider()
	}

	// Function listeners need the interpreter.
	runtimeCfg := wazero.NewRuntimeConfigInterpreter()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	e := &Engine{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hosts:    hosts,
		otel:     provider.Tracer(instrumentationName),
		phantoms: phantoms,
	}
	if err := e.instantiateHosts(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

func (e *Engine) instantiateHosts(ctx context.Context) error {
	for _, name := range e.hosts.Modules() {
		builder := e.runtime.NewHostModuleBuilder(name)
		funcs := e.hosts.Funcs(name)
		for _, fn := range funcs {
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(fn.Handler, valueTypes(fn.Type.Params), valueTypes(fn.Type.Results)).
				WithName(fn.Name).
				Export(fn.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Wrap(errors.PhaseHost, errors.KindInstantiation, err,
				fmt.Sprintf("host module %s", name))
		}
		Logger().Debug("instantiated host module", zap.String("module", name), zap.Int("functions", len(funcs)))
	}
	return nil
}

// IsPhantom reports whether a function with the given debug name or
// export names is traced as a phantom.
func (e *Engine) IsPhantom(names ...string) bool {
	for _, re := range e.phantoms {
		for _, name := range names {
			if name != "" && re.MatchString(name) {
				return true
			}
		}
	}
	return false
}

// Close releases the wazero runtime and every module it instantiated.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

func valueTypes(types []wasm.ValType) []api.ValueType {
	if len(types) == 0 {
		return nil
	}
	out := make([]api.ValueType, len(types))
	for i, t := range types {
		out[i] = api.ValueType(t)
	}
	return out
}
