package wasmtracer

import (
	"context"
	"testing"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/runtime"
	"github.com/wippyai/wasm-tracer/wasm/wasmtest"
)

func TestTrace(t *testing.T) {
	res, err := Trace(context.Background(), wasmtest.Phantom().Encode(), "get_i32", runtime.Config{
		Public: []uint64{1<<32 | 7},
		Engine: engine.Config{PhantomFunctions: wasmtest.PhantomPatterns},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Results[0] != 7 {
		t.Errorf("get_i32 = %d, want the low half 7", res.Results[0])
	}
	// i32.const, call_host, i32.wrap_i64, return.
	if len(res.Tables.Execution) != 4 {
		t.Errorf("execution rows = %d", len(res.Tables.Execution))
	}
}

func TestTraceBadModule(t *testing.T) {
	_, err := Trace(context.Background(), []byte{0, 'a', 's', 'm'}, "run", runtime.Config{})
	if !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("err = %v", err)
	}
}
