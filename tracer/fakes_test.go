package tracer

import (
	"fmt"

	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

var handles HandleAllocator

type fakeFunc struct {
	sig     wasm.FuncType
	body    []wasm.Instruction
	handle  Handle
	hostIdx int
	isHost  bool
}

func (f *fakeFunc) Handle() Handle { return f.handle }
func (f *fakeFunc) Signature() wasm.FuncType { return f.sig }
func (f *fakeFunc) HostIndex() (int, bool) { return f.hostIdx, f.isHost }
func (f *fakeFunc) Body() []wasm.Instruction { return f.body }

func wasmFunc(sig wasm.FuncType, body ...wasm.Instruction) *fakeFunc {
	return &fakeFunc{handle: handles.Next(), sig: sig, body: body}
}

func hostFunc(sig wasm.FuncType, idx int) *fakeFunc {
	return &fakeFunc{handle: handles.Next(), sig: sig, hostIdx: idx, isHost: true}
}

type fakeModule struct {
	start  *uint32
	funcs  []Function
	handle Handle
}

func newModule(funcs ...Function) *fakeModule {
	return &fakeModule{handle: handles.Next(), funcs: funcs}
}

func (m *fakeModule) Handle() Handle { return m.handle }

func (m *fakeModule) FuncByIndex(idx uint32) (Function, bool) {
	if int(idx) >= len(m.funcs) {
		return nil, false
	}
	return m.funcs[idx], true
}

func (m *fakeModule) StartFunction() (uint32, bool) {
	if m.start == nil {
		return 0, false
	}
	return *m.start, true
}

type fakeMemory struct {
	data   []byte
	handle Handle
	pages  uint32
}

func newMemory(pages uint32) *fakeMemory {
	return &fakeMemory{handle: handles.Next(), pages: pages, data: make([]byte, int(pages)*wasm.PageSize)}
}

func (m *fakeMemory) Handle() Handle { return m.handle }
func (m *fakeMemory) InitialPages() uint32 { return m.pages }

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("read [%d, %d) beyond %d bytes", offset, end, len(m.data))
	}
	return m.data[offset:end], nil
}

type fakeGlobal struct {
	handle  Handle
	value   uint64
	typ     wasm.ValType
	mutable bool
}

func newGlobal(typ wasm.ValType, mutable bool, value uint64) *fakeGlobal {
	return &fakeGlobal{handle: handles.Next(), typ: typ, mutable: mutable, value: value}
}

func (g *fakeGlobal) Handle() Handle { return g.handle }
func (g *fakeGlobal) ValType() wasm.ValType { return g.typ }
func (g *fakeGlobal) Mutable() bool { return g.mutable }
func (g *fakeGlobal) Get() uint64 { return g.value }

type fakeHosts map[int]tables.HostFunctionDesc

func (h fakeHosts) LookupHost(idx int) (tables.HostFunctionDesc, bool) {
	d, ok := h[idx]
	return d, ok
}

func inputHosts(idx int) fakeHosts {
	return fakeHosts{idx: {
		Plugin:          tables.HostPluginInput,
		Name:            tables.WasmInputName,
		Signature:       tables.WasmInputSignature(),
		OpIndexInPlugin: tables.WasmInputOp,
	}}
}

var (
	sigVoid     = wasm.FuncType{}
	sigInput    = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}}
	sigRetI64   = wasm.FuncType{Results: []wasm.ValType{wasm.ValI64}}
	sigRetI32   = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
	sigI32ToI32 = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
)

func op(code byte) wasm.Instruction {
	return wasm.Instruction{Opcode: code}
}

func call(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: idx}}
}

func i32Const(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}
