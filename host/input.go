package host

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Ordinals of the HostInput plugin functions.
const (
	OpWasmInput  = tables.WasmInputOp
	OpWasmOutput = 1
)

// Names of the functions the built-in plugins define.
const (
	WasmOutputName = "wasm_output"
	RequireName    = "require"
)

// Input is the HostInput plugin state: a public and a private queue of
// 64-bit inputs consumed by wasm_input, and the values emitted by
// wasm_output.
type Input struct {
	public  []uint64
	private []uint64
	outputs []uint64
	mu      sync.Mutex
}

// NewInput creates the plugin state with the given queues.
func NewInput(public, private []uint64) *Input {
	return &Input{
		public:  append([]uint64(nil), public...),
		private: append([]uint64(nil), private...),
	}
}

// Next pops the next value from the public queue when public is true,
// else from the private queue.
func (in *Input) Next(public bool) (uint64, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	queue := &in.private
	name := "private input"
	if public {
		queue = &in.public
		name = "public input"
	}
	if len(*queue) == 0 {
		return 0, errors.New(errors.PhaseHost, errors.KindExhausted).
			Path(tables.WasmInputName).
			Detail("%s queue is empty", name).
			Build()
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v, nil
}

// Remaining returns the lengths of the public and private queues.
func (in *Input) Remaining() (public, private int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.public), len(in.private)
}

// Outputs returns the values written by wasm_output, in order.
func (in *Input) Outputs() []uint64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]uint64(nil), in.outputs...)
}

// Register defines wasm_input and wasm_output in r under DefaultModule.
// wasm_input is defined first so a fresh registry gives it raw index 0.
func (in *Input) Register(r *Registry) error {
	if _, err := r.Define(Func{
		Plugin:          tables.HostPluginInput,
		Name:            tables.WasmInputName,
		OpIndexInPlugin: OpWasmInput,
		Type: wasm.FuncType{
			Params:  []wasm.ValType{wasm.ValI32},
			Results: []wasm.ValType{wasm.ValI64},
		},
		Handler: func(_ context.Context, _ api.Module, stack []uint64) {
			v, err := in.Next(api.DecodeI32(stack[0]) != 0)
			if err != nil {
				panic(err)
			}
			stack[0] = v
		},
	}); err != nil {
		return err
	}

	_, err := r.Define(Func{
		Plugin:          tables.HostPluginInput,
		Name:            WasmOutputName,
		OpIndexInPlugin: OpWasmOutput,
		Type:            wasm.FuncType{Params: []wasm.ValType{wasm.ValI64}},
		Handler: func(_ context.Context, _ api.Module, stack []uint64) {
			in.mu.Lock()
			in.outputs = append(in.outputs, stack[0])
			in.mu.Unlock()
		},
	})
	return err
}

// RegisterRequire defines require(i32) in r: a zero argument aborts the
// guest call.
func RegisterRequire(r *Registry) error {
	_, err := r.Define(Func{
		Plugin: tables.HostPluginRequire,
		Name:   RequireName,
		Type:   wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}},
		Handler: func(_ context.Context, _ api.Module, stack []uint64) {
			if api.DecodeI32(stack[0]) == 0 {
				Logger().Warn("require failed")
				panic(errors.New(errors.PhaseHost, errors.KindInvalidInput).
					Path(RequireName).
					Detail("require condition is false").
					Build())
			}
		},
	})
	return err
}

// NewDefaultRegistry builds a registry with the HostInput and Require
// plugins. wasm_input has raw index 0.
func NewDefaultRegistry(in *Input) (*Registry, error) {
	r := NewRegistry()
	if err := in.Register(r); err != nil {
		return nil, err
	}
	if err := RegisterRequire(r); err != nil {
		return nil, err
	}
	Logger().Debug("built default host registry", zap.Int("functions", r.Len()))
	return r, nil
}
