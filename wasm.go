package wasmtracer

import (
	"context"

	"github.com/wippyai/wasm-tracer/runtime"
)

// Trace loads raw and traces one call of the exported function fn.
// Tracing is switched on regardless of cfg.Trace.
func Trace(ctx context.Context, raw []byte, fn string, cfg runtime.Config, args ...uint64) (*runtime.TwoPassResult, error) {
	cfg.Trace = true
	mod, err := runtime.New(cfg).Load(raw)
	if err != nil {
		return nil, err
	}
	return mod.TraceCall(ctx, fn, args...)
}
