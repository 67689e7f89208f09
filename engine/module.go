package engine

import (
	"context"
	stderrors "errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/linker"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Module is a guest module running on the engine. Module is NOT safe for
// concurrent use: one goroutine drives its calls.
type Module struct {
	engine   *Engine
	mod      api.Module
	inst     *linker.Instance
	listener *listener
}

// Instantiate compiles raw, the binary inst was built from, and runs it
// with a function listener attached. With a non-nil t, inst must already
// be registered with t. The counter advances by every synthesized phantom
// step, recorded or not.
func (e *Engine) Instantiate(ctx context.Context, inst *linker.Instance, raw []byte, t *tracer.Tracer, counter *tracer.StepCounter) (*Module, error) {
	l, err := e.newListener(inst, t, counter)
	if err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(experimental.WithFunctionListenerFactory(ctx, l), raw)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "compile module")
	}

	ctx, span := e.otel.Start(ctx, "wasm.instantiate", trace.WithAttributes(attribute.String("module", inst.Name())))
	defer span.End()

	// Only the start section runs; WASI-style _start is not called.
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName(inst.Name()).
		WithStartFunctions())
	if ferr := l.reset(); ferr != nil {
		err = ferr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instantiate")
		return nil, callError(err, "start")
	}

	Logger().Debug("instantiated guest module",
		zap.String("module", inst.Name()),
		zap.Int("phantoms", len(l.phantoms)),
		zap.Bool("tracing", t != nil))
	return &Module{engine: e, mod: mod, inst: inst, listener: l}, nil
}

func (e *Engine) newListener(inst *linker.Instance, t *tracer.Tracer, counter *tracer.StepCounter) (*listener, error) {
	l := &listener{
		tracer:   t,
		counter:  counter,
		phantoms: make(map[uint32]phantomFunc),
	}
	if t != nil {
		id, err := t.LookupModuleInstance(inst)
		if err != nil {
			return nil, err
		}
		l.moduleID = id
	}

	needInput := false
	for i := 0; i < inst.NumFuncs(); i++ {
		fn, _ := inst.Func(uint32(i))
		if fn.IsHost() || !e.IsPhantom(append(exportNames(inst, fn.Index()), fn.Name())...) {
			continue
		}
		sig, err := tables.SignatureFromFuncType(fn.Signature())
		if err != nil {
			return nil, err
		}
		p := phantomFunc{sig: sig}
		if t != nil {
			if p.fid, err = t.LookupFunction(fn); err != nil {
				return nil, err
			}
		}
		l.phantoms[fn.Index()] = p
		needInput = needInput || sig.HasReturn()
	}

	if needInput {
		idx, ok := e.inputImport(inst)
		if !ok {
			return nil, errors.NotFound(errors.PhaseRuntime, "import", tables.WasmInputName)
		}
		l.inputIdx = idx
	}
	return l, nil
}

// inputImport finds the import bound to the wasm_input host function.
func (e *Engine) inputImport(inst *linker.Instance) (uint32, bool) {
	for i := 0; i < inst.NumFuncs(); i++ {
		fn, _ := inst.Func(uint32(i))
		hostIdx, ok := fn.HostIndex()
		if !ok {
			continue
		}
		desc, ok := e.hosts.LookupHost(hostIdx)
		if ok && desc.Plugin == tables.HostPluginInput && desc.Name == tables.WasmInputName {
			return fn.Index(), true
		}
	}
	return 0, false
}

func exportNames(inst *linker.Instance, idx uint32) []string {
	var names []string
	for _, exp := range inst.Module().Exports {
		if exp.Kind == wasm.KindFunc && exp.Idx == idx {
			names = append(names, exp.Name)
		}
	}
	return names
}

// Call invokes an exported function.
func (m *Module) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := m.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}

	ctx, span := m.engine.otel.Start(ctx, "wasm.call", trace.WithAttributes(
		attribute.String("module", m.inst.Name()),
		attribute.String("function", name),
		attribute.Int("args", len(args)),
	))
	defer span.End()

	results, err := fn.Call(ctx, args...)
	if ferr := m.listener.reset(); ferr != nil {
		err = ferr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, callError(err, name)
	}
	return results, nil
}

// Memory returns the live linear memory, nil if the module has none.
func (m *Module) Memory() api.Memory {
	return m.mod.Memory()
}

// Instance returns the static image the module was instantiated from.
func (m *Module) Instance() *linker.Instance {
	return m.inst
}

// Close closes the guest module.
func (m *Module) Close(ctx context.Context) error {
	return m.mod.Close(ctx)
}

// callError keeps tracer and host errors as they are and reports
// anything else as a trap.
func callError(err error, function string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e
	}
	return errors.New(errors.PhaseRuntime, errors.KindTrap).
		Path(function).
		Cause(err).
		Detail("call %s", function).
		Build()
}
