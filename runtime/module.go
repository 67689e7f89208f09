package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/linker"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Module is a parsed module ready for instantiation.
type Module struct {
	runtime *Runtime
	parsed  *wasm.Module
	raw     []byte
}

// Parsed returns the decoded module.
func (m *Module) Parsed() *wasm.Module {
	return m.parsed
}

// Link builds the static image of the module without running it.
func (m *Module) Link(name string) (*linker.Instance, error) {
	image, _, _, err := m.link(name)
	return image, err
}

func (m *Module) link(name string) (*linker.Instance, *host.Registry, *host.Input, error) {
	hosts, input, err := m.runtime.hosts()
	if err != nil {
		return nil, nil, nil, err
	}
	image, err := linker.New(hosts, m.runtime.cfg.Linker).Instantiate(name, m.parsed)
	if err != nil {
		return nil, nil, nil, err
	}
	return image, hosts, input, nil
}

// Instantiate creates an instance named name with the runtime's Trace
// setting.
func (m *Module) Instantiate(ctx context.Context, name string) (*Instance, error) {
	return m.instantiate(ctx, name, m.runtime.cfg.Trace)
}

// instantiate links the module, registers memory, globals and the module
// with a new tracer in that order, and starts it on a fresh engine.
func (m *Module) instantiate(ctx context.Context, name string, trace bool) (*Instance, error) {
	cfg := m.runtime.cfg
	image, hosts, input, err := m.link(name)
	if err != nil {
		return nil, err
	}

	var t *tracer.Tracer
	if trace {
		t = tracer.New(hosts, tracer.Config{Logger: cfg.Logger})
		if err := register(t, image); err != nil {
			return nil, err
		}
	}

	eng, err := engine.New(ctx, hosts, cfg.Engine)
	if err != nil {
		return nil, err
	}
	counter := &tracer.StepCounter{}
	mod, err := eng.Instantiate(ctx, image, m.raw, t, counter)
	if err != nil {
		_ = eng.Close(ctx)
		return nil, err
	}

	Logger().Debug("instantiated",
		zap.String("name", name),
		zap.Bool("trace", trace))
	return &Instance{
		engine:  eng,
		module:  mod,
		tracer:  t,
		counter: counter,
		input:   input,
	}, nil
}

func register(t *tracer.Tracer, image *linker.Instance) error {
	if mem := image.Memory(); mem != nil {
		if err := t.PushInitMemory(mem); err != nil {
			return err
		}
	}
	moduleID := t.NextModuleID()
	for i, g := range image.Globals() {
		if err := t.PushGlobal(moduleID, uint32(i), g); err != nil {
			return err
		}
	}
	return t.RegisterModuleInstance(image)
}

// TwoPassResult is the outcome of TraceCall.
type TwoPassResult struct {
	Tables   tracer.Tables
	Results  []uint64
	Outputs  []uint64
	Counted  uint64 // phantom steps of the counting pass
	Recorded uint64 // phantom steps of the recording pass
}

// TraceCall runs fn twice on fresh instances: first without a tracer to
// count phantom steps, then with one to record them. Both passes see the
// same inputs. It fails if the counts differ.
func (m *Module) TraceCall(ctx context.Context, fn string, args ...uint64) (*TwoPassResult, error) {
	counted, err := m.CountPhantomSteps(ctx, fn, args...)
	if err != nil {
		return nil, err
	}

	inst, err := m.instantiate(ctx, "trace", true)
	if err != nil {
		return nil, err
	}
	defer inst.Close(ctx)

	// Steps synthesized by the start function belong to this pass too.
	results, err := inst.Call(ctx, fn, args...)
	if err != nil {
		return nil, err
	}
	res := &TwoPassResult{
		Results:  results,
		Tables:   inst.tracer.Tables(),
		Outputs:  inst.input.Outputs(),
		Counted:  counted,
		Recorded: inst.counter.Drain(),
	}
	if res.Counted != res.Recorded {
		return res, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Path(fn).
			Detail("counted %d phantom steps, recorded %d", res.Counted, res.Recorded).
			Build()
	}
	return res, nil
}

// CountPhantomSteps runs fn on a fresh untraced instance and returns the
// number of phantom steps a recording run would emit, including those of
// the start function.
func (m *Module) CountPhantomSteps(ctx context.Context, fn string, args ...uint64) (uint64, error) {
	inst, err := m.instantiate(ctx, "count", false)
	if err != nil {
		return 0, err
	}
	defer inst.Close(ctx)

	if _, err := inst.Call(ctx, fn, args...); err != nil {
		return 0, err
	}
	return inst.counter.Drain(), nil
}
