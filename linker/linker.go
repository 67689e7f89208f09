package linker

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/host"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

// Options configures linker behavior.
type Options struct {
	// MemoryLimitPages caps the initial memory of an instance in pages.
	// 0 means the wasm32 limit of 65536 pages.
	MemoryLimitPages uint32
}

// Linker builds instance images of parsed modules, resolving function
// imports against a host registry. Handles of everything it creates come
// from one allocator, so all instances of a Linker can share a tracer.
type Linker struct {
	hosts   *host.Registry
	handles *tracer.HandleAllocator
	options Options
}

// New creates a Linker resolving imports against hosts.
func New(hosts *host.Registry, opts Options) *Linker {
	if hosts == nil {
		hosts = host.NewRegistry()
	}
	return &Linker{
		hosts:   hosts,
		handles: &tracer.HandleAllocator{},
		options: opts,
	}
}

// Instantiate builds the image of m. Imports must all be functions
// provided by the host registry; imported memories, tables and globals
// are rejected.
func (l *Linker) Instantiate(name string, m *wasm.Module) (*Instance, error) {
	hostIdxs, err := l.resolveImports(m)
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		module: m,
		name:   name,
		start:  m.Start,
		handle: l.handles.Next(),
	}

	for i, imp := range functionImports(m) {
		inst.funcs = append(inst.funcs, &Function{
			handle:  l.handles.Next(),
			index:   uint32(i),
			name:    imp.Module + "." + imp.Name,
			sig:     m.Types[imp.Desc.TypeIdx],
			hostIdx: hostIdxs[i],
			isHost:  true,
		})
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, errors.InvalidData(errors.PhaseLink, []string{"code"},
			fmt.Sprintf("%d function declarations, %d bodies", len(m.Funcs), len(m.Code)))
	}
	imported := uint32(len(inst.funcs))
	for i, typeIdx := range m.Funcs {
		idx := imported + uint32(i)
		if int(typeIdx) >= len(m.Types) {
			return nil, errors.OutOfBounds(errors.PhaseLink,
				[]string{"function", fmt.Sprint(idx), "type"}, int(typeIdx), len(m.Types))
		}
		body, err := wasm.DecodeInstructions(m.Code[i].Code)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err,
				fmt.Sprintf("decode body of function %d", idx))
		}
		inst.funcs = append(inst.funcs, &Function{
			handle: l.handles.Next(),
			index:  idx,
			name:   m.FuncName(idx),
			sig:    m.Types[typeIdx],
			body:   body,
		})
	}

	if m.Start != nil && int(*m.Start) >= len(inst.funcs) {
		return nil, errors.OutOfBounds(errors.PhaseLink, []string{"start"}, int(*m.Start), len(inst.funcs))
	}

	if err := l.initGlobals(inst); err != nil {
		return nil, err
	}
	if err := l.initMemory(inst); err != nil {
		return nil, err
	}

	Logger().Debug("instantiated module",
		zap.String("name", name),
		zap.Uint32("handle", uint32(inst.handle)),
		zap.Int("functions", len(inst.funcs)),
		zap.Int("globals", len(inst.globals)),
		zap.Bool("memory", inst.memory != nil))
	return inst, nil
}

func (l *Linker) initGlobals(inst *Instance) error {
	for i, g := range inst.module.Globals {
		value, err := evalConst(g.Init, g.Type.ValType, inst)
		if err != nil {
			return errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err,
				fmt.Sprintf("initializer of global %d", i))
		}
		inst.globals = append(inst.globals, &Global{
			handle:  l.handles.Next(),
			typ:     g.Type.ValType,
			mutable: g.Type.Mutable,
			value:   value,
		})
	}
	return nil
}

func (l *Linker) initMemory(inst *Instance) error {
	m := inst.module
	switch len(m.Memories) {
	case 0:
		for i, d := range m.Data {
			if d.Active() {
				return errors.InvalidData(errors.PhaseLink,
					[]string{"data", fmt.Sprint(i)}, "active data segment without a memory")
			}
		}
		return nil
	case 1:
	default:
		return errors.Unsupported(errors.PhaseLink, "multiple memories")
	}

	limits := m.Memories[0].Limits
	limit := l.options.MemoryLimitPages
	if limit == 0 {
		limit = 1 << 16
	}
	if limits.Min > limit {
		return errors.OutOfBounds(errors.PhaseLink, []string{"memory", "min"}, int(limits.Min), int(limit))
	}

	mem := &Memory{
		handle: l.handles.Next(),
		pages:  limits.Min,
		max:    limits.Max,
		data:   make([]byte, uint64(limits.Min)*wasm.PageSize),
	}
	for i, d := range m.Data {
		if !d.Active() {
			continue
		}
		off, err := evalConst(d.Offset, wasm.ValI32, inst)
		if err != nil {
			return errors.Wrap(errors.PhaseLink, errors.KindInvalidData, err,
				fmt.Sprintf("offset of data segment %d", i))
		}
		start := uint64(uint32(off))
		end := start + uint64(len(d.Init))
		if end > uint64(len(mem.data)) {
			return errors.OutOfBounds(errors.PhaseLink, []string{"data", fmt.Sprint(i)}, int(end), len(mem.data))
		}
		copy(mem.data[start:end], d.Init)
	}
	inst.memory = mem
	return nil
}
