package tables

// FrameTableEntry pairs a call frame's opening marker with the marker of
// its caller and the latest EID when it returned.
type FrameTableEntry struct {
	EID         uint32 // latest EID when the frame was entered
	LastJumpEID uint32 // enclosing frame marker
	ReturnEID   uint32
	Returned    bool
}

// FrameTable records one entry per frame, in call order.
type FrameTable struct {
	entries []FrameTableEntry
	open    []int
}

// NewFrameTable creates an empty table.
func NewFrameTable() *FrameTable {
	return &FrameTable{}
}

// Enter records a new frame.
func (t *FrameTable) Enter(eid, lastJumpEID uint32) {
	t.open = append(t.open, len(t.entries))
	t.entries = append(t.entries, FrameTableEntry{EID: eid, LastJumpEID: lastJumpEID})
}

// Leave closes the innermost open frame. It reports false when no frame is open.
func (t *FrameTable) Leave(returnEID uint32) bool {
	if len(t.open) == 0 {
		return false
	}
	i := t.open[len(t.open)-1]
	t.open = t.open[:len(t.open)-1]
	t.entries[i].ReturnEID = returnEID
	t.entries[i].Returned = true
	return true
}

// Len returns the number of recorded frames.
func (t *FrameTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries.
func (t *FrameTable) Entries() []FrameTableEntry {
	out := make([]FrameTableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
