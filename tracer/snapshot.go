package tracer

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

// CellsPerPage is the number of 8-byte heap cells in one wasm page.
const CellsPerPage = wasm.PageSize / 8

// PushInitMemory snapshots every 8-byte cell of mem's initial pages into
// the init memory table and registers mem under the next memory id.
func (t *Tracer) PushInitMemory(mem MemoryInstance) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.memories.get(mem.Handle()); ok {
		return errors.AlreadyRegistered(errors.PhaseSnapshot, "memory", mem.Handle())
	}
	if t.idsExhausted(t.memories.len()) {
		return errors.New(errors.PhaseSnapshot, errors.KindExhausted).Detail("memory ids exhausted").Build()
	}
	id := t.nextMemoryID()
	pages := mem.InitialPages()

	// Read page by page so the last page of a 4 GiB memory stays addressable.
	cells := make([]tables.InitMemoryTableEntry, 0, int(pages)*CellsPerPage)
	for page := uint32(0); page < pages; page++ {
		data, err := mem.Read(page*wasm.PageSize, wasm.PageSize)
		if err != nil {
			return errors.New(errors.PhaseSnapshot, errors.KindOutOfBounds).
				Path("memory", fmt.Sprint(id), "page", fmt.Sprint(page)).
				Cause(err).
				Detail("read page").
				Build()
		}
		if len(data) != wasm.PageSize {
			return errors.OutOfBounds(errors.PhaseSnapshot,
				[]string{"memory", fmt.Sprint(id), "page", fmt.Sprint(page)}, wasm.PageSize, len(data))
		}
		for cell := 0; cell < CellsPerPage; cell++ {
			cells = append(cells, tables.InitMemoryTableEntry{
				LocationType: tables.LocationHeap,
				IsMutable:    true,
				InstanceID:   id,
				Offset:       page*CellsPerPage + uint32(cell),
				ValueType:    tables.ValueTypeI64,
				Value:        binary.LittleEndian.Uint64(data[cell*8:]),
			})
		}
	}

	for _, c := range cells {
		t.imtable.Push(c)
	}
	t.memories.insert(mem.Handle(), id)

	t.log.Debug("captured initial memory",
		zap.Uint16("memory_id", id),
		zap.Uint32("pages", pages),
		zap.Int("cells", len(cells)))
	return nil
}

// PushGlobal records the initial value of the global declared at index
// of module moduleID. Registering a global twice is an unimplemented
// path: aliased and imported globals are not supported.
func (t *Tracer) PushGlobal(moduleID uint16, index uint32, g GlobalInstance) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ref, ok := t.globals.get(g.Handle()); ok {
		return errors.New(errors.PhaseSnapshot, errors.KindUnimplemented).
			Path("global", fmt.Sprint(moduleID), fmt.Sprint(index)).
			Value(ref).
			Detail("global aliasing: already registered as module %d index %d", ref.ModuleID, ref.Index).
			Build()
	}
	vt, err := tables.FromValType(g.ValType())
	if err != nil {
		return errors.New(errors.PhaseSnapshot, errors.KindUnsupported).
			Path("global", fmt.Sprint(moduleID), fmt.Sprint(index)).
			Cause(err).
			Detail("global of type %s", g.ValType()).
			Build()
	}

	t.globals.insert(g.Handle(), GlobalRef{ModuleID: moduleID, Index: index})
	t.imtable.Push(tables.InitMemoryTableEntry{
		LocationType: tables.LocationGlobal,
		IsMutable:    g.Mutable(),
		InstanceID:   moduleID,
		Offset:       index,
		ValueType:    vt,
		Value:        vt.Canonical(g.Get()),
	})
	return nil
}
