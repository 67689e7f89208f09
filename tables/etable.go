package tables

// ExecutionTableEntry is one recorded step.
type ExecutionTableEntry struct {
	Step                 StepInfo
	Instruction          InstructionTableEntry
	EID                  uint32
	SP                   uint32
	AllocatedMemoryPages uint32
	LastJumpEID          uint32
}

// ExecutionTable is the ordered sequence of recorded steps. EIDs start at
// 1: the EID of a pushed entry is the table length after the push.
type ExecutionTable struct {
	entries []ExecutionTableEntry
}

// NewExecutionTable creates an empty table.
func NewExecutionTable() *ExecutionTable {
	return &ExecutionTable{}
}

// Push records a step and returns its EID.
func (t *ExecutionTable) Push(inst InstructionTableEntry, sp, pages, lastJumpEID uint32, step StepInfo) uint32 {
	eid := uint32(len(t.entries)) + 1
	t.entries = append(t.entries, ExecutionTableEntry{
		EID:                  eid,
		Instruction:          inst,
		SP:                   sp,
		AllocatedMemoryPages: pages,
		LastJumpEID:          lastJumpEID,
		Step:                 step,
	})
	return eid
}

// LatestEID returns the EID of the most recent step, 0 when empty.
func (t *ExecutionTable) LatestEID() uint32 {
	return uint32(len(t.entries))
}

// Len returns the number of steps.
func (t *ExecutionTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the steps.
func (t *ExecutionTable) Entries() []ExecutionTableEntry {
	out := make([]ExecutionTableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
