package tracer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

type pendingFunc struct {
	fn   Function
	desc FuncDesc
}

// RegisterModuleInstance assigns stable ids to every function of m and
// emits one instruction table entry per (function, pc). The start
// function gets id 0; the others take the next ids of the tracer-wide
// counter. Only one registered module may carry a start function. Nothing
// is recorded if any function fails.
func (t *Tracer) RegisterModuleInstance(m ModuleInstance) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.modules.get(m.Handle()); ok {
		return errors.AlreadyRegistered(errors.PhaseRegister, "module", m.Handle())
	}
	if t.idsExhausted(t.modules.len()) {
		return errors.New(errors.PhaseRegister, errors.KindExhausted).Detail("module ids exhausted").Build()
	}
	moduleID := t.nextModuleID()

	// Phase 1: classify and number every function.
	start, hasStart := m.StartFunction()
	nextFID := t.nextFID
	var funcs []pendingFunc
	for idx := uint32(0); ; idx++ {
		fn, ok := m.FuncByIndex(idx)
		if !ok {
			break
		}
		var fid uint16
		if hasStart && idx == start {
			fid = 0
		} else {
			if nextFID == math.MaxUint16 {
				return errors.New(errors.PhaseRegister, errors.KindExhausted).Detail("function ids exhausted").Build()
			}
			fid = nextFID
			nextFID++
		}

		sig, err := tables.SignatureFromFuncType(fn.Signature())
		if err != nil {
			return errors.New(errors.PhaseRegister, errors.KindUnsupported).
				Path("function", fmt.Sprint(idx)).
				Cause(err).
				Detail("signature %s", fn.Signature()).
				Build()
		}
		kind, err := t.classify(fn)
		if err != nil {
			return err
		}
		funcs = append(funcs, pendingFunc{fn: fn, desc: FuncDesc{FID: fid, Kind: kind, Signature: sig}})
	}
	descs := make([]FuncDesc, len(funcs))
	for i, pf := range funcs {
		descs[i] = pf.desc
	}

	// Phase 2: emit the instruction table, call targets rewritten to ids.
	var entries []tables.InstructionTableEntry
	for idx, pf := range funcs {
		for pc, instr := range pf.fn.Body() {
			if target, ok := instr.GetCallTarget(); ok {
				if int(target) >= len(descs) {
					return errors.InvalidData(errors.PhaseRegister,
						[]string{"function", fmt.Sprint(idx), "pc", fmt.Sprint(pc)},
						fmt.Sprintf("call target %d out of range (%d functions)", target, len(descs)))
				}
				instr = instr.WithCallTarget(uint32(descs[target].FID))
			}
			entries = append(entries, tables.InstructionTableEntry{
				ModuleID: moduleID,
				MemoryID: moduleID,
				FID:      pf.desc.FID,
				IID:      uint32(pc),
				Opcode:   instr,
			})
		}
	}
	for _, pf := range funcs {
		if t.itable.Has(pf.desc.FID) {
			return errors.AlreadyRegistered(errors.PhaseRegister, "function", pf.desc.FID)
		}
	}
	for _, e := range entries {
		if err := t.itable.Push(e); err != nil {
			return err
		}
	}

	for _, pf := range funcs {
		// A host function imported by several modules keeps its first id.
		t.functions.insert(pf.fn.Handle(), pf.desc.FID)
	}
	t.translations = append(t.translations, descs)
	t.modules.insert(m.Handle(), moduleID)
	t.nextFID = nextFID

	t.log.Debug("registered module instance",
		zap.Uint16("module_id", moduleID),
		zap.Int("functions", len(funcs)),
		zap.Int("instructions", len(entries)),
		zap.Bool("has_start", hasStart))
	return nil
}

func (t *Tracer) classify(fn Function) (FunctionKind, error) {
	hostIdx, ok := fn.HostIndex()
	if !ok {
		return WasmFunction{}, nil
	}
	if t.hosts == nil {
		return nil, errors.UnknownHost(errors.PhaseRegister, hostIdx)
	}
	desc, ok := t.hosts.LookupHost(hostIdx)
	if !ok {
		return nil, errors.UnknownHost(errors.PhaseRegister, hostIdx)
	}
	return HostFunction{
		Plugin:          desc.Plugin,
		Name:            desc.Name,
		HostIndex:       hostIdx,
		OpIndexInPlugin: desc.OpIndexInPlugin,
	}, nil
}

// LookupIEntry returns the instruction table entry of f at pc.
func (t *Tracer) LookupIEntry(f Function, pc uint32) (tables.InstructionTableEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fid, ok := t.functions.get(f.Handle())
	if !ok {
		return tables.InstructionTableEntry{}, errors.NotRegistered("function", f.Handle())
	}
	e, ok := t.itable.Lookup(fid, pc)
	if !ok {
		return tables.InstructionTableEntry{}, errors.OutOfBounds(errors.PhaseLookup,
			[]string{"function", fmt.Sprint(fid)}, int(pc), len(f.Body()))
	}
	return e, nil
}

// LookupFirstInst returns the entry with the smallest pc of f.
func (t *Tracer) LookupFirstInst(f Function) (tables.InstructionTableEntry, error) {
	return t.LookupIEntry(f, 0)
}

// InstructionStat counts one distinct instruction across registered modules.
type InstructionStat struct {
	Name  string
	Count int
}

// InstructionStatistics lists the distinct instructions of the
// instruction table, in first-seen order.
func (t *Tracer) InstructionStatistics() []InstructionStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stats []InstructionStat
	index := make(map[string]int)
	for _, e := range t.itable.Entries() {
		name := wasm.OpcodeName(e.Opcode.Opcode)
		if misc, ok := e.Opcode.Imm.(wasm.MiscImm); ok {
			name = wasm.MiscName(misc.SubOpcode)
		}
		i, seen := index[name]
		if !seen {
			i = len(stats)
			index[name] = i
			stats = append(stats, InstructionStat{Name: name})
		}
		stats[i].Count++
	}
	return stats
}
