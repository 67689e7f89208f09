// Package engine runs guest modules on wazero's interpreter and feeds
// their call events to a tracer.
//
// Every function of a guest module gets the same function listener. On
// entry to a wasm function it opens a tracer frame, on return or abort it
// closes it. Functions whose debug or export name matches one of
// Config.PhantomFunctions are phantoms: when one returns, the listener
// synthesizes its steps with tracer.FillTrace using the observed result,
// and calls made inside it are not traced.
//
// wazero exposes no per-instruction hook, so the execution table holds
// the phantom steps only; frames cover every traced call.
//
// A fatal tracer error inside a call panics, which wazero turns into the
// call's error. The listener then ignores the remaining events of that
// call, leaving the tracer's frame stack as it was at the failure.
//
// Each exported call and each instantiation gets an OpenTelemetry span;
// phantom injections are recorded as span events.
package engine
