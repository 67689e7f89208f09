package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/linker"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Config holds configuration for a Runtime.
type Config struct {
	// Logger is given to every tracer the runtime creates. nil uses the
	// tracer package logger.
	Logger *zap.Logger

	// Hosts extends the default host registry of each instance. It runs
	// after the HostInput and Require plugins are defined.
	Hosts func(r *host.Registry) error

	// Public and Private seed the wasm_input queues of each instance.
	Public  []uint64
	Private []uint64

	Engine engine.Config
	Linker linker.Options

	// Trace enables recording. Without it instances only count phantom steps.
	Trace bool
}

// Runtime loads modules and instantiates them for tracing.
type Runtime struct {
	cfg Config
}

// New creates a runtime.
func New(cfg Config) *Runtime {
	return &Runtime{cfg: cfg}
}

// Config returns the runtime configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Load parses a core WebAssembly binary.
func (r *Runtime) Load(raw []byte) (*Module, error) {
	parsed, err := wasm.ParseModule(raw)
	if err != nil {
		return nil, errors.Decode("parse module", err)
	}
	Logger().Debug("loaded module",
		zap.Int("bytes", len(raw)),
		zap.Int("functions", len(parsed.Funcs)),
		zap.Int("imports", len(parsed.Imports)))
	return &Module{runtime: r, raw: raw, parsed: parsed}, nil
}

// hosts builds a fresh registry so every instance owns its input queues.
func (r *Runtime) hosts() (*host.Registry, *host.Input, error) {
	in := host.NewInput(r.cfg.Public, r.cfg.Private)
	reg, err := host.NewDefaultRegistry(in)
	if err != nil {
		return nil, nil, err
	}
	if r.cfg.Hosts != nil {
		if err := r.cfg.Hosts(reg); err != nil {
			return nil, nil, err
		}
	}
	return reg, in, nil
}
