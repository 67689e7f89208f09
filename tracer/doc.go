// Package tracer records the execution trace of WebAssembly modules in
// the table layout a zero-knowledge proof builder consumes.
//
// A Tracer is fed in two stages. At instantiation time the caller
// registers the instance's memories, globals and module:
//
//	t := tracer.New(hosts, tracer.Config{})
//	_ = t.PushInitMemory(mem)                    // heap cells, memory id 1
//	_ = t.PushGlobal(t.NextModuleID(), 0, glob)  // globals of the module
//	_ = t.RegisterModuleInstance(mod)            // function ids, instructions
//
// During execution the driver opens and closes frames around calls and
// synthesizes phantom steps for functions whose results come from the
// input host function:
//
//	t.PushFrame()
//	_ = tracer.FillTrace(t, counter, tracer.PhantomCall{...})
//	t.PopFrame()
//
// Instances are identified by Handle values assigned by the
// instantiating side; lookups are direct slice indexing.
//
// # Two-pass counting
//
// FillTrace with a nil tracer records nothing but advances the
// StepCounter by the same amount as a recording call. A caller can run
// once without a tracer, Drain the counter, and then run with a tracer
// knowing exactly how many phantom steps will be emitted.
package tracer
