package tracer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/tables"
)

// Config configures a Tracer.
type Config struct {
	// Logger overrides the package logger for this tracer.
	Logger *zap.Logger
}

// FunctionKind tells wasm functions from host functions. It is decided
// once at registration.
type FunctionKind interface {
	isFunctionKind()
}

// WasmFunction is a function with a bytecode body.
type WasmFunction struct{}

// HostFunction is a function implemented by a host plugin.
type HostFunction struct {
	Plugin          tables.HostPlugin
	Name            string
	HostIndex       int
	OpIndexInPlugin int
}

func (WasmFunction) isFunctionKind() {}
func (HostFunction) isFunctionKind() {}

// FuncDesc is the registered description of one function.
type FuncDesc struct {
	Kind      FunctionKind
	Signature tables.Signature
	FID       uint16
}

// Host returns the host descriptor of a host function.
func (d FuncDesc) Host() (HostFunction, bool) {
	h, ok := d.Kind.(HostFunction)
	return h, ok
}

// GlobalRef locates a registered global by owning module and declared index.
type GlobalRef struct {
	ModuleID uint16
	Index    uint32
}

// Tables is a snapshot of everything a tracer has produced.
type Tables struct {
	Instructions []tables.InstructionTableEntry
	InitMemory   []tables.InitMemoryTableEntry
	Execution    []tables.ExecutionTableEntry
	Frames       []tables.FrameTableEntry
}

// Tracer records the static layout, initial state and execution steps of
// the modules registered with it. One goroutine drives a tracer; the
// mutex keeps the call listener and phantom injection from interleaving.
type Tracer struct {
	hosts HostLookup
	log   *zap.Logger

	itable  *tables.InstructionTable
	imtable *tables.InitMemoryTable
	etable  *tables.ExecutionTable
	jtable  *tables.FrameTable

	modules   arena[uint16]
	memories  arena[uint16]
	globals   arena[GlobalRef]
	functions arena[uint16]

	// translations[moduleID-1][rawIdx]
	translations [][]FuncDesc

	lastJumpEIDs []uint32
	mu           sync.Mutex
	nextFID      uint16
}

// New creates a tracer resolving host functions through hosts.
func New(hosts HostLookup, cfg Config) *Tracer {
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	return &Tracer{
		hosts:        hosts,
		log:          log,
		itable:       tables.NewInstructionTable(),
		imtable:      tables.NewInitMemoryTable(),
		etable:       tables.NewExecutionTable(),
		jtable:       tables.NewFrameTable(),
		lastJumpEIDs: []uint32{0},
		nextFID:      1,
	}
}

// EID returns the EID of the latest recorded step, 0 before any step.
func (t *Tracer) EID() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.etable.LatestEID()
}

// Tables returns a copy of the produced tables.
func (t *Tracer) Tables() Tables {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Tables{
		Instructions: t.itable.Entries(),
		InitMemory:   t.imtable.Entries(),
		Execution:    t.etable.Entries(),
		Frames:       t.jtable.Entries(),
	}
}
