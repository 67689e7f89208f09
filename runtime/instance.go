package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/linker"
	"github.com/wippyai/wasm-tracer/tracer"
)

// Instance is a running module with its own engine, host state and,
// when tracing, its own tracer.
type Instance struct {
	engine  *engine.Engine
	module  *engine.Module
	tracer  *tracer.Tracer
	counter *tracer.StepCounter
	input   *host.Input
}

// Call invokes an exported function with raw wasm values.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	return i.module.Call(ctx, name, args...)
}

// Tracer returns the instance's tracer, nil when tracing is off.
func (i *Instance) Tracer() *tracer.Tracer {
	return i.tracer
}

// Tables returns a snapshot of the recorded tables. ok is false when
// tracing is off.
func (i *Instance) Tables() (tables tracer.Tables, ok bool) {
	if i.tracer == nil {
		return tracer.Tables{}, false
	}
	return i.tracer.Tables(), true
}

// PhantomSteps returns the phantom steps synthesized since the last call
// to PhantomSteps and resets the count.
func (i *Instance) PhantomSteps() uint64 {
	return i.counter.Drain()
}

// Input returns the HostInput plugin state of the instance.
func (i *Instance) Input() *host.Input {
	return i.input
}

// Image returns the static image the instance was created from.
func (i *Instance) Image() *linker.Instance {
	return i.module.Instance()
}

// Memory returns the live linear memory, nil if the module has none.
func (i *Instance) Memory() api.Memory {
	return i.module.Memory()
}

// Close releases the instance and its engine.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close(ctx)
}
