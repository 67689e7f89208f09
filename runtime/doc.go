// Package runtime provides the high-level API for tracing WebAssembly
// modules.
//
// # Quick Start
//
//	rt := runtime.New(runtime.Config{
//		Trace:  true,
//		Public: []uint64{40, 2},
//		Engine: engine.Config{PhantomFunctions: []string{"^zkwasm_"}},
//	})
//
//	mod, err := rt.Load(wasmBytes)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx, "main")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	results, err := inst.Call(ctx, "run")
//	tables, _ := inst.Tables()
//
// # Instantiation Order
//
// Instantiate links the module into a static image, then registers with
// a fresh tracer the initial memory, the globals and finally the module
// itself, before the engine runs the start function. Every instance owns
// its engine, host registry and input queues.
//
// # Two Passes
//
// TraceCall runs a function once without a tracer, counting phantom
// steps, and once with one. Both passes start from the same inputs, so
// the counts must agree.
package runtime
