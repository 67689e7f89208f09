package tracer

import (
	"math"

	"github.com/wippyai/wasm-tracer/errors"
)

// NextModuleID returns the id the next registered module will receive.
func (t *Tracer) NextModuleID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextModuleID()
}

// NextMemoryID returns the id the next registered memory will receive.
func (t *Tracer) NextMemoryID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextMemoryID()
}

func (t *Tracer) nextModuleID() uint16 {
	return uint16(t.modules.len() + 1)
}

func (t *Tracer) nextMemoryID() uint16 {
	return uint16(t.memories.len() + 1)
}

func (t *Tracer) idsExhausted(count int) bool {
	return count >= math.MaxUint16
}

// LookupModuleInstance returns the id of a registered module.
func (t *Tracer) LookupModuleInstance(m ModuleInstance) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.modules.get(m.Handle())
	if !ok {
		return 0, errors.NotRegistered("module", m.Handle())
	}
	return id, nil
}

// LookupMemoryInstance returns the id of a registered memory.
func (t *Tracer) LookupMemoryInstance(m MemoryInstance) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.memories.get(m.Handle())
	if !ok {
		return 0, errors.NotRegistered("memory", m.Handle())
	}
	return id, nil
}

// LookupGlobalInstance returns where a global was registered. Absence is
// not an error: callers use it to detect aliasing.
func (t *Tracer) LookupGlobalInstance(g GlobalInstance) (GlobalRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globals.get(g.Handle())
}

// LookupFunction returns the stable id of a registered function.
func (t *Tracer) LookupFunction(f Function) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fid, ok := t.functions.get(f.Handle())
	if !ok {
		return 0, errors.NotRegistered("function", f.Handle())
	}
	return fid, nil
}

// FuncDescByIndex returns the description of the function at a raw index
// of a registered module.
func (t *Tracer) FuncDescByIndex(moduleID uint16, idx uint32) (FuncDesc, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.funcDescByIndex(moduleID, idx)
}

func (t *Tracer) funcDescByIndex(moduleID uint16, idx uint32) (FuncDesc, error) {
	if moduleID == 0 || int(moduleID) > len(t.translations) {
		return FuncDesc{}, errors.NotRegistered("module", moduleID)
	}
	descs := t.translations[moduleID-1]
	if int(idx) >= len(descs) {
		return FuncDesc{}, errors.New(errors.PhaseLookup, errors.KindNotRegistered).
			Value(idx).
			Detail("module %d has no function at index %d", moduleID, idx).
			Build()
	}
	return descs[idx], nil
}
