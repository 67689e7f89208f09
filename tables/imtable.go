package tables

import "fmt"

// LocationType tells heap cells from globals in the init memory table.
type LocationType uint8

const (
	LocationHeap LocationType = iota
	LocationGlobal
)

func (l LocationType) String() string {
	if l == LocationGlobal {
		return "global"
	}
	return "heap"
}

// MarshalText renders the location by name.
func (l LocationType) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// InitMemoryTableEntry is the initial value of one heap cell or global.
// Heap offsets are in 8-byte cell units; global offsets are declared indices.
type InitMemoryTableEntry struct {
	Value        uint64
	Offset       uint32
	InstanceID   uint16
	LocationType LocationType
	ValueType    ValueType
	IsMutable    bool
}

type imKey struct {
	offset   uint32
	instance uint16
	ltype    LocationType
}

// InitMemoryTable holds heap cells and globals in registration order.
type InitMemoryTable struct {
	entries []InitMemoryTableEntry
	index   map[imKey]int
}

// NewInitMemoryTable creates an empty table.
func NewInitMemoryTable() *InitMemoryTable {
	return &InitMemoryTable{index: make(map[imKey]int)}
}

// Push appends an entry.
func (t *InitMemoryTable) Push(e InitMemoryTableEntry) {
	t.index[imKey{offset: e.Offset, instance: e.InstanceID, ltype: e.LocationType}] = len(t.entries)
	t.entries = append(t.entries, e)
}

// Find returns the entry of a location.
func (t *InitMemoryTable) Find(ltype LocationType, instanceID uint16, offset uint32) (InitMemoryTableEntry, bool) {
	i, ok := t.index[imKey{offset: offset, instance: instanceID, ltype: ltype}]
	if !ok {
		return InitMemoryTableEntry{}, false
	}
	return t.entries[i], true
}

// Len returns the number of entries.
func (t *InitMemoryTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries.
func (t *InitMemoryTable) Entries() []InitMemoryTableEntry {
	out := make([]InitMemoryTableEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (e InitMemoryTableEntry) String() string {
	return fmt.Sprintf("%s[%d:%d] %s=%#x mut=%t", e.LocationType, e.InstanceID, e.Offset, e.ValueType, e.Value, e.IsMutable)
}
