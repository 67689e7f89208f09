// Package errors provides structured error types for the tracer.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Registry contract violations carry dedicated kinds: KindNotRegistered for a
// lookup of an instance that was never registered, KindUnknownHost for a raw
// host index missing from the plugin registry, KindUnimplemented for global
// aliasing, and KindUnderflow for popping the base frame marker.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePhantom, errors.KindTypeMismatch).
//		Path("wasm_input").
//		Detail("input function is not a host function").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotRegistered("memory", handle)
//	err := errors.OutOfBounds(errors.PhaseSnapshot, path, 10, 5)
//
// IsKind matches a kind regardless of phase, through any wrapping.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
