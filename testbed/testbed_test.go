package testbed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-tracer/engine"
	"github.com/wippyai/wasm-tracer/export"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/runtime"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
	"github.com/wippyai/wasm-tracer/wasm/wasmtest"
)

var addType = wasm.FuncType{
	Params:  []wasm.ValType{wasm.ValI64, wasm.ValI64},
	Results: []wasm.ValType{wasm.ValI64},
}

// sumModule imports env.add and env.wasm_output and exports
// sum() -> i64, which outputs and returns add(2, 3).
func sumModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FuncType{addType, {Params: []wasm.ValType{wasm.ValI64}}, wasmtest.RetI64},
		Imports: []wasm.Import{
			{Module: "env", Name: "add", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
			{Module: "env", Name: host.WasmOutputName, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 1}},
		},
		Funcs: []uint32{2},
		Code: []wasm.FuncBody{{Code: wasmtest.Body(
			wasmtest.I64(2), wasmtest.I64(3), wasmtest.Call(0),
			wasmtest.I64(2), wasmtest.I64(3), wasmtest.Call(0),
			wasmtest.Call(1),
		)}},
		Exports: []wasm.Export{{Name: "sum", Kind: wasm.KindFunc, Idx: 2}},
	}
}

func defineAdd(r *host.Registry) error {
	_, err := r.Define(host.Func{
		Name:   "add",
		Plugin: tables.HostPluginContext,
		Type:   addType,
		Handler: func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] += stack[1]
		},
	})
	return err
}

func TestCustomHostPlugin(t *testing.T) {
	ctx := context.Background()

	rt := runtime.New(runtime.Config{Trace: true, Hosts: defineAdd})
	mod, err := rt.Load(sumModule().Encode())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	inst, err := mod.Instantiate(ctx, "sum")
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	defer inst.Close(ctx)

	results, err := inst.Call(ctx, "sum")
	if err != nil {
		t.Fatalf("call sum: %v", err)
	}
	if results[0] != 5 {
		t.Errorf("sum() = %d, want 5", results[0])
	}
	if out := inst.Input().Outputs(); len(out) != 1 || out[0] != 5 {
		t.Errorf("outputs = %v", out)
	}

	// add was defined after the three built-in host functions.
	desc, err := inst.Tracer().FuncDescByIndex(1, 0)
	if err != nil {
		t.Fatalf("describe add: %v", err)
	}
	h, ok := desc.Host()
	if !ok || h.Plugin != tables.HostPluginContext || h.Name != "add" || h.HostIndex != 3 {
		t.Errorf("add = %+v", desc)
	}
	if desc.FID != 1 || desc.Signature.String() != "(i64, i64) -> i64" {
		t.Errorf("add fid %d signature %s", desc.FID, desc.Signature)
	}

	tbl, _ := inst.Tables()
	if len(tbl.Execution) != 0 {
		t.Errorf("no phantoms, yet %d steps", len(tbl.Execution))
	}
	if len(tbl.Frames) != 1 || !tbl.Frames[0].Returned {
		t.Errorf("frames = %+v", tbl.Frames)
	}
}

func TestPhantomTraceExport(t *testing.T) {
	rt := runtime.New(runtime.Config{
		Trace:  true,
		Public: []uint64{40, 2},
		Engine: engine.Config{PhantomFunctions: wasmtest.PhantomPatterns},
	})
	mod, err := rt.Load(wasmtest.Phantom().Encode())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := mod.TraceCall(context.Background(), "run")
	if err != nil {
		t.Fatalf("trace run: %v", err)
	}

	var buf bytes.Buffer
	w := export.NewWriter(&buf)
	if err := w.WriteTables(res.Tables); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	dec := json.NewDecoder(&buf)
	for {
		var row struct {
			Table string `json:"table"`
		}
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		counts[row.Table]++
	}

	want := map[string]int{
		export.TableInstruction: len(res.Tables.Instructions),
		export.TableInitMemory:  tracer.CellsPerPage + 1,
		export.TableExecution:   8,
		export.TableFrame:       5,
	}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("%s rows = %d, want %d", table, counts[table], n)
		}
	}
}

func TestRequireFailureStopsTrace(t *testing.T) {
	rt := runtime.New(runtime.Config{
		Trace:  true,
		Engine: engine.Config{PhantomFunctions: wasmtest.PhantomPatterns},
	})
	mod, err := rt.Load(wasmtest.Phantom().Encode())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := mod.TraceCall(context.Background(), "check", 0); err == nil {
		t.Fatal("require(0) should fail the trace")
	}
}
