package linker

import (
	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Instance is the static image of an instantiated module: every function
// with its decoded body, the linear memory after active data segments
// were applied, and the globals after their initializers ran.
// Instance is not safe for concurrent mutation.
type Instance struct {
	module  *wasm.Module
	start   *uint32
	memory  *Memory
	name    string
	funcs   []*Function
	globals []*Global
	handle  tracer.Handle
}

var _ tracer.ModuleInstance = (*Instance)(nil)

// Handle identifies the instance to the tracer.
func (i *Instance) Handle() tracer.Handle { return i.handle }

// Name is the instance name used for diagnostics and the engine module.
func (i *Instance) Name() string { return i.name }

// Module returns the parsed module the instance was built from.
func (i *Instance) Module() *wasm.Module { return i.module }

// FuncByIndex returns the function at idx of the function index space,
// imports first.
func (i *Instance) FuncByIndex(idx uint32) (tracer.Function, bool) {
	if int(idx) >= len(i.funcs) {
		return nil, false
	}
	return i.funcs[idx], true
}

// Func is FuncByIndex returning the concrete type.
func (i *Instance) Func(idx uint32) (*Function, bool) {
	if int(idx) >= len(i.funcs) {
		return nil, false
	}
	return i.funcs[idx], true
}

// NumFuncs returns the size of the function index space.
func (i *Instance) NumFuncs() int { return len(i.funcs) }

// StartFunction returns the start function index, if the module has one.
func (i *Instance) StartFunction() (uint32, bool) {
	if i.start == nil {
		return 0, false
	}
	return *i.start, true
}

// Memory returns the linear memory, nil if the module declares none.
func (i *Instance) Memory() *Memory { return i.memory }

// Globals returns the globals in declaration order.
func (i *Instance) Globals() []*Global { return i.globals }

// ExportedFunc resolves an exported function by name.
func (i *Instance) ExportedFunc(name string) (*Function, bool) {
	idx, ok := i.module.ExportedFunc(name)
	if !ok {
		return nil, false
	}
	return i.Func(idx)
}

// HostImport returns the raw function index of the first import bound to
// the host function with raw host index hostIdx.
func (i *Instance) HostImport(hostIdx int) (uint32, bool) {
	for idx, fn := range i.funcs {
		if h, ok := fn.HostIndex(); ok && h == hostIdx {
			return uint32(idx), true
		}
	}
	return 0, false
}

// Function is a function of an instance: either a host import or a wasm
// function with a decoded body.
type Function struct {
	sig     wasm.FuncType
	name    string
	body    []wasm.Instruction
	index   uint32
	hostIdx int
	handle  tracer.Handle
	isHost  bool
}

var _ tracer.Function = (*Function)(nil)

func (f *Function) Handle() tracer.Handle { return f.handle }
func (f *Function) Signature() wasm.FuncType { return f.sig }
func (f *Function) HostIndex() (int, bool) { return f.hostIdx, f.isHost }
func (f *Function) Body() []wasm.Instruction { return f.body }
func (f *Function) Index() uint32 { return f.index }
func (f *Function) Name() string { return f.name }
func (f *Function) IsHost() bool { return f.isHost }

// Memory is a linear memory image.
type Memory struct {
	max    *uint32
	data   []byte
	handle tracer.Handle
	pages  uint32
}

var _ tracer.MemoryInstance = (*Memory)(nil)

func (m *Memory) Handle() tracer.Handle { return m.handle }
func (m *Memory) InitialPages() uint32 { return m.pages }

// MaxPages returns the declared maximum, if any.
func (m *Memory) MaxPages() (uint32, bool) {
	if m.max == nil {
		return 0, false
	}
	return *m.max, true
}

// Read returns length bytes at offset. The slice aliases the image.
func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, errors.OutOfBounds(errors.PhaseLink, []string{"memory"}, int(end), len(m.data))
	}
	return m.data[offset:end], nil
}

// Global is a global image.
type Global struct {
	value   uint64
	handle  tracer.Handle
	typ     wasm.ValType
	mutable bool
}

var _ tracer.GlobalInstance = (*Global)(nil)

func (g *Global) Handle() tracer.Handle { return g.handle }
func (g *Global) ValType() wasm.ValType { return g.typ }
func (g *Global) Mutable() bool { return g.mutable }
func (g *Global) Get() uint64 { return g.value }
