// Package host owns the raw host function index space shared by the
// linker, the tracer and the engine.
//
// A Registry assigns each defined function a dense index in definition
// order. The linker resolves imports to these indices, the tracer
// classifies functions through LookupHost, and the engine exports every
// definition as a wazero host module.
//
// The built-in plugins are HostInput (wasm_input, wasm_output) and
// Require (require).
package host
