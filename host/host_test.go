package host

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

func nopHandler(context.Context, api.Module, []uint64) {}

func TestRegistryIndicesInDefinitionOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"a", "b", "c"}
	for i, name := range names {
		idx, err := r.Define(Func{Name: name, Handler: nopHandler})
		if err != nil {
			t.Fatal(err)
		}
		if idx != i {
			t.Errorf("%s index = %d, want %d", name, idx, i)
		}
	}
	if idx, ok := r.Resolve(DefaultModule, "b"); !ok || idx != 1 {
		t.Errorf("Resolve(b) = %d, %v", idx, ok)
	}
	if _, ok := r.Resolve("other", "b"); ok {
		t.Error("resolved a name in the wrong module")
	}
	if _, ok := r.LookupHost(3); ok {
		t.Error("LookupHost past the end should fail")
	}
	if _, ok := r.LookupHost(-1); ok {
		t.Error("LookupHost(-1) should fail")
	}
}

func TestRegistryDefineErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Define(Func{Name: "x", Handler: nopHandler}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   Func
		kind errors.Kind
	}{
		{"empty name", Func{Handler: nopHandler}, errors.KindInvalidInput},
		{"no handler", Func{Name: "y"}, errors.KindInvalidInput},
		{"duplicate", Func{Name: "x", Handler: nopHandler}, errors.KindAlreadyRegistered},
		{"multi-value", Func{Name: "z", Handler: nopHandler, Type: wasm.FuncType{Results: []wasm.ValType{wasm.ValI32, wasm.ValI32}}}, errors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Define(tt.fn); !errors.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(NewInput(nil, nil))
	if err != nil {
		t.Fatal(err)
	}

	desc, ok := r.LookupHost(0)
	if !ok {
		t.Fatal("wasm_input not at index 0")
	}
	want := tables.WasmInputSignature()
	if desc.Plugin != tables.HostPluginInput || desc.Name != tables.WasmInputName ||
		desc.OpIndexInPlugin != tables.WasmInputOp || desc.Signature.String() != want.String() {
		t.Errorf("wasm_input desc = %+v", desc)
	}

	idx, ok := r.Resolve(DefaultModule, RequireName)
	if !ok {
		t.Fatal("require not defined")
	}
	if desc, _ := r.LookupHost(idx); desc.Plugin != tables.HostPluginRequire {
		t.Errorf("require plugin = %s", desc.Plugin)
	}
	if got := r.Modules(); len(got) != 1 || got[0] != DefaultModule {
		t.Errorf("Modules = %v", got)
	}
	if got := len(r.Funcs(DefaultModule)); got != 3 {
		t.Errorf("Funcs = %d, want 3", got)
	}
}

func TestInputQueues(t *testing.T) {
	in := NewInput([]uint64{1, 2}, []uint64{9})
	r, err := NewDefaultRegistry(in)
	if err != nil {
		t.Fatal(err)
	}
	input, _ := r.Func(0)

	call := func(public uint32) (v uint64, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = rec.(error)
			}
		}()
		stack := []uint64{api.EncodeU32(public)}
		input.Handler(context.Background(), nil, stack)
		return stack[0], nil
	}

	for _, tc := range []struct {
		public uint32
		want   uint64
	}{{1, 1}, {0, 9}, {1, 2}} {
		v, err := call(tc.public)
		if err != nil || v != tc.want {
			t.Fatalf("wasm_input(%d) = %d, %v; want %d", tc.public, v, err, tc.want)
		}
	}
	if _, err := call(1); !errors.IsKind(err, errors.KindExhausted) {
		t.Errorf("empty queue err = %v", err)
	}
	if pub, priv := in.Remaining(); pub != 0 || priv != 0 {
		t.Errorf("remaining = %d, %d", pub, priv)
	}

	output, _ := r.Func(1)
	output.Handler(context.Background(), nil, []uint64{77})
	if got := in.Outputs(); len(got) != 1 || got[0] != 77 {
		t.Errorf("outputs = %v", got)
	}
}

func TestRequire(t *testing.T) {
	r := NewRegistry()
	if err := RegisterRequire(r); err != nil {
		t.Fatal(err)
	}
	fn, _ := r.Func(0)
	fn.Handler(context.Background(), nil, []uint64{1})

	defer func() {
		err, _ := recover().(error)
		if !errors.IsKind(err, errors.KindInvalidInput) {
			t.Errorf("recovered %v", err)
		}
	}()
	fn.Handler(context.Background(), nil, []uint64{0})
}
