// Package wasmtracer records execution traces of WebAssembly modules in
// the table layout consumed by zero-knowledge proof builders.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmtracer/          Root package with the one-call Trace helper
//	├── runtime/         High-level API: load, instantiate, two-pass tracing
//	├── engine/          wazero integration, call listener and phantom injection
//	├── linker/          Import resolution and static instance images
//	├── tracer/          Instance registry, snapshots, catalog, frames, phantoms
//	├── tables/          Instruction, init memory, execution and frame tables
//	├── host/            Host function registry and the HostInput plugin
//	├── export/          JSON Lines table writer
//	├── wasm/            Core WASM binary parsing and encoding
//	├── errors/          Structured error types for debugging
//	└── cmd/wasmtrace/   Command-line tracer and table browser
//
// # Quick Start
//
//	res, err := wasmtracer.Trace(ctx, wasmBytes, "run", runtime.Config{
//		Public: []uint64{40, 2},
//		Engine: engine.Config{PhantomFunctions: []string{"^zkwasm_"}},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(res.Tables.Execution))
//
// # Phantom Functions
//
// Functions whose names match a phantom pattern run normally, but their
// trace is replaced by the few steps that fetch the result from the
// wasm_input host function. Trace runs the call twice: once counting
// those steps and once recording them.
package wasmtracer
