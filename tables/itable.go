package tables

import (
	"fmt"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/wasm"
)

// InstructionTableEntry is one static instruction of a registered module.
// Call targets in Opcode are stable function ids, not raw indices.
type InstructionTableEntry struct {
	Opcode   wasm.Instruction
	IID      uint32
	ModuleID uint16
	MemoryID uint16
	FID      uint16
}

func (e InstructionTableEntry) String() string {
	return fmt.Sprintf("fid=%d iid=%d %s", e.FID, e.IID, e.Opcode)
}

type funcSpan struct {
	start int
	count int
}

// InstructionTable is the append-only catalogue of every instruction of
// every registered module, in function then pc order.
type InstructionTable struct {
	entries []InstructionTableEntry
	spans   map[uint16]funcSpan
	last    uint16
}

// NewInstructionTable creates an empty table.
func NewInstructionTable() *InstructionTable {
	return &InstructionTable{spans: make(map[uint16]funcSpan)}
}

// Push appends an entry. Entries of one function must be contiguous and
// their IIDs must count up from 0.
func (t *InstructionTable) Push(e InstructionTableEntry) error {
	span, seen := t.spans[e.FID]
	switch {
	case !seen:
		if e.IID != 0 {
			return errors.InvalidData(errors.PhaseRegister, []string{"itable"},
				fmt.Sprintf("function %d starts at iid %d", e.FID, e.IID))
		}
		span = funcSpan{start: len(t.entries)}
	case e.FID != t.last:
		return errors.AlreadyRegistered(errors.PhaseRegister, "function", e.FID)
	case int(e.IID) != span.count:
		return errors.InvalidData(errors.PhaseRegister, []string{"itable"},
			fmt.Sprintf("function %d: iid %d out of order, expected %d", e.FID, e.IID, span.count))
	}
	span.count++
	t.spans[e.FID] = span
	t.last = e.FID
	t.entries = append(t.entries, e)
	return nil
}

// Has reports whether fid already owns entries.
func (t *InstructionTable) Has(fid uint16) bool {
	_, ok := t.spans[fid]
	return ok
}

// Lookup returns the entry at (fid, iid).
func (t *InstructionTable) Lookup(fid uint16, iid uint32) (InstructionTableEntry, bool) {
	span, ok := t.spans[fid]
	if !ok || int(iid) >= span.count {
		return InstructionTableEntry{}, false
	}
	return t.entries[span.start+int(iid)], true
}

// First returns the entry with the smallest pc of fid.
func (t *InstructionTable) First(fid uint16) (InstructionTableEntry, bool) {
	return t.Lookup(fid, 0)
}

// Len returns the number of entries.
func (t *InstructionTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in emission order.
func (t *InstructionTable) Entries() []InstructionTableEntry {
	out := make([]InstructionTableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
