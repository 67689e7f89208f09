package tracer

import (
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

// ModuleInstance is an instantiated module as the tracer sees it.
type ModuleInstance interface {
	Handle() Handle
	// FuncByIndex returns the function at a raw index of the module's
	// function index space, imports first.
	FuncByIndex(idx uint32) (Function, bool)
	StartFunction() (uint32, bool)
}

// Function is a live function instance.
type Function interface {
	Handle() Handle
	Signature() wasm.FuncType
	// HostIndex returns the raw host function index of a host function.
	HostIndex() (int, bool)
	// Body returns the decoded instructions indexed by pc, nil for host functions.
	Body() []wasm.Instruction
}

// MemoryInstance is a live linear memory.
type MemoryInstance interface {
	Handle() Handle
	InitialPages() uint32
	Read(offset, length uint32) ([]byte, error)
}

// GlobalInstance is a live global.
type GlobalInstance interface {
	Handle() Handle
	ValType() wasm.ValType
	Mutable() bool
	// Get returns the raw bits of the current value.
	Get() uint64
}

// HostLookup resolves raw host function indices to plugin descriptors.
type HostLookup interface {
	LookupHost(index int) (tables.HostFunctionDesc, bool)
}
