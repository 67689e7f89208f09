package wasm

import (
	"slices"

	"github.com/wippyai/wasm-tracer/wasm/internal/binary"
)

// section is one non-custom section in binary order. body is nil when
// the module has nothing to put in it.
type section struct {
	body func(w *binary.Writer)
	id   byte
}

// Encode serializes the module. Empty sections are omitted.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	for _, s := range m.sections() {
		if s.body == nil {
			continue
		}
		sec := binary.NewWriter()
		s.body(sec)
		writeSection(w, s.id, sec.Bytes())
	}

	if m.Names != nil {
		writeSection(w, SectionCustom, encodeNameSection(m.Names))
	}
	for _, cs := range m.CustomSections {
		if cs.Name == CustomSectionName && m.Names != nil {
			continue
		}
		sec := binary.NewWriter()
		sec.WriteName(cs.Name)
		sec.WriteBytes(cs.Data)
		writeSection(w, SectionCustom, sec.Bytes())
	}
	return w.Bytes()
}

// vec returns a section body writing items as a length-prefixed vector,
// or nil for an empty one.
func vec[T any](items []T, each func(w *binary.Writer, item T)) func(*binary.Writer) {
	if len(items) == 0 {
		return nil
	}
	return func(w *binary.Writer) {
		w.WriteU32(uint32(len(items)))
		for _, item := range items {
			each(w, item)
		}
	}
}

func single(v *uint32) func(*binary.Writer) {
	if v == nil {
		return nil
	}
	return func(w *binary.Writer) { w.WriteU32(*v) }
}

func (m *Module) sections() []section {
	return []section{
		{id: SectionType, body: vec(m.Types, func(w *binary.Writer, ft FuncType) {
			w.Byte(FuncTypeByte)
			writeValTypes(w, ft.Params)
			writeValTypes(w, ft.Results)
		})},
		{id: SectionImport, body: vec(m.Imports, writeImport)},
		{id: SectionFunction, body: vec(m.Funcs, (*binary.Writer).WriteU32)},
		{id: SectionTable, body: vec(m.Tables, writeTableType)},
		{id: SectionMemory, body: vec(m.Memories, func(w *binary.Writer, mem MemoryType) {
			writeLimits(w, mem.Limits)
		})},
		{id: SectionGlobal, body: vec(m.Globals, func(w *binary.Writer, g Global) {
			writeGlobalType(w, g.Type)
			w.WriteBytes(g.Init)
		})},
		{id: SectionExport, body: vec(m.Exports, func(w *binary.Writer, exp Export) {
			w.WriteName(exp.Name)
			w.Byte(exp.Kind)
			w.WriteU32(exp.Idx)
		})},
		{id: SectionStart, body: single(m.Start)},
		{id: SectionElement, body: vec(m.Elements, writeElement)},
		{id: SectionDataCount, body: single(m.DataCount)},
		{id: SectionCode, body: vec(m.Code, writeBody)},
		{id: SectionData, body: vec(m.Data, writeData)},
	}
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}

func writeImport(w *binary.Writer, imp Import) {
	w.WriteName(imp.Module)
	w.WriteName(imp.Name)
	d := imp.Desc
	w.Byte(d.Kind)
	switch {
	case d.Kind == KindFunc:
		w.WriteU32(d.TypeIdx)
	case d.Kind == KindTable && d.Table != nil:
		writeTableType(w, *d.Table)
	case d.Kind == KindMemory && d.Memory != nil:
		writeLimits(w, d.Memory.Limits)
	case d.Kind == KindGlobal && d.Global != nil:
		writeGlobalType(w, *d.Global)
	}
}

func writeBody(w *binary.Writer, body FuncBody) {
	bw := binary.NewWriter()
	bw.WriteU32(uint32(len(body.Locals)))
	for _, l := range body.Locals {
		bw.WriteU32(l.Count)
		bw.Byte(byte(l.ValType))
	}
	bw.WriteBytes(body.Code)
	w.WriteU32(uint32(bw.Len()))
	w.WriteBytes(bw.Bytes())
}

func writeData(w *binary.Writer, d DataSegment) {
	w.WriteU32(d.Flags)
	switch d.Flags {
	case 0:
		w.WriteBytes(d.Offset)
	case 2:
		w.WriteU32(d.MemIdx)
		w.WriteBytes(d.Offset)
	}
	w.WriteU32(uint32(len(d.Init)))
	w.WriteBytes(d.Init)
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.Max == nil {
		w.Byte(LimitsNoMax)
		w.WriteU32(l.Min)
		return
	}
	w.Byte(LimitsHasMax)
	w.WriteU32(l.Min)
	w.WriteU32(*l.Max)
}

func writeTableType(w *binary.Writer, t TableType) {
	w.Byte(byte(t.ElemType))
	writeLimits(w, t.Limits)
}

func writeGlobalType(w *binary.Writer, g GlobalType) {
	var mut byte
	if g.Mutable {
		mut = 1
	}
	w.Byte(byte(g.ValType))
	w.Byte(mut)
}

// writeElement follows the flag layout of the element section: bit 0
// passive or declarative, bit 1 explicit table index, bit 2 expressions.
func writeElement(w *binary.Writer, e Element) {
	w.WriteU32(e.Flags)
	if e.Flags&0x01 == 0 {
		if e.Flags&0x02 != 0 {
			w.WriteU32(e.TableIdx)
		}
		w.WriteBytes(e.Offset)
	}
	exprs := e.Flags&0x04 != 0
	if e.Flags&0x03 != 0 {
		kind := byte(0x00)
		if exprs {
			kind = byte(e.ElemType)
		}
		w.Byte(kind)
	}
	if exprs {
		w.WriteU32(uint32(len(e.Exprs)))
		for _, expr := range e.Exprs {
			w.WriteBytes(expr)
		}
		return
	}
	w.WriteU32(uint32(len(e.FuncIdxs)))
	for _, idx := range e.FuncIdxs {
		w.WriteU32(idx)
	}
}

func encodeNameSection(ns *NameSection) []byte {
	sec := binary.NewWriter()
	sec.WriteName(CustomSectionName)

	sub := func(id byte, fill func(w *binary.Writer)) {
		w := binary.NewWriter()
		fill(w)
		writeSection(sec, id, w.Bytes())
	}
	if ns.ModuleName != "" {
		sub(NameSubsectionModule, func(w *binary.Writer) { w.WriteName(ns.ModuleName) })
	}
	if len(ns.FuncNames) > 0 {
		// Name maps are sorted by index.
		idxs := make([]uint32, 0, len(ns.FuncNames))
		for idx := range ns.FuncNames {
			idxs = append(idxs, idx)
		}
		slices.Sort(idxs)
		sub(NameSubsectionFunction, func(w *binary.Writer) {
			w.WriteU32(uint32(len(idxs)))
			for _, idx := range idxs {
				w.WriteU32(idx)
				w.WriteName(ns.FuncNames[idx])
			}
		})
	}
	return sec.Bytes()
}
