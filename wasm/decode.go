package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-tracer/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

type sectionParser struct {
	parse func(*binary.Reader, *Module) error
	name  string
}

var sectionParsers = map[byte]sectionParser{
	SectionCustom:    {parseCustomSection, "custom section"},
	SectionType:      {parseTypeSection, "type section"},
	SectionImport:    {parseImportSection, "import section"},
	SectionFunction:  {parseFunctionSection, "function section"},
	SectionTable:     {parseTableSection, "table section"},
	SectionMemory:    {parseMemorySection, "memory section"},
	SectionGlobal:    {parseGlobalSection, "global section"},
	SectionExport:    {parseExportSection, "export section"},
	SectionStart:     {parseStartSection, "start section"},
	SectionElement:   {parseElementSection, "element section"},
	SectionCode:      {parseCodeSection, "code section"},
	SectionData:      {parseDataSection, "data section"},
	SectionDataCount: {parseDataCountSection, "data count section"},
}

// ParseModule parses a WebAssembly 1.0 binary module. Function bodies are
// kept as raw bytes; DecodeInstructions turns them into instruction lists.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	lastOrder := 0
	for r.Len() > 0 {
		id, _ := r.ReadByte()
		p, ok := sectionParsers[id]
		if !ok {
			return nil, fmt.Errorf("unknown section ID: 0x%02x", id)
		}
		// Custom sections may appear anywhere.
		if id != SectionCustom {
			order := sectionOrder(id)
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", id)
			}
			lastOrder = order
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}
		sr := binary.NewReader(payload)
		if err := p.parse(sr, m); err != nil {
			return nil, sr.WrapError(p.name, err)
		}
	}

	if len(m.Code) != len(m.Funcs) {
		return nil, fmt.Errorf("function and code section counts differ: %d != %d", len(m.Funcs), len(m.Code))
	}
	return m, nil
}

// sectionOrder returns the position a section must respect. DataCount
// (id 12) sits between Element and Code.
func sectionOrder(id byte) int {
	switch id {
	case SectionDataCount:
		return int(SectionElement) + 1
	case SectionCode, SectionData:
		return int(id) + 1
	default:
		return int(id)
	}
}

// readVec reads a length-prefixed vector. The capacity hint is bounded by
// the remaining input so a forged count cannot force a huge allocation.
func readVec[T any](r *binary.Reader, read func(*binary.Reader) (T, error)) ([]T, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]T, 0, min(int(count), r.Len()))
	for i := uint32(0); i < count; i++ {
		v, err := read(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readU32(r *binary.Reader) (uint32, error) { return r.ReadU32() }

func parseCustomSection(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	data := r.ReadRemaining()
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: data})

	if name == CustomSectionName {
		// A malformed name section is ignored, as engines do.
		if names, err := parseNameSection(data); err == nil {
			m.Names = names
		}
	}
	return nil
}

type nameAssoc struct {
	name string
	idx  uint32
}

func readNameAssoc(r *binary.Reader) (nameAssoc, error) {
	idx, err := r.ReadU32()
	if err != nil {
		return nameAssoc{}, err
	}
	name, err := r.ReadName()
	return nameAssoc{name: name, idx: idx}, err
}

func parseNameSection(data []byte) (*NameSection, error) {
	r := binary.NewReader(data)
	ns := &NameSection{FuncNames: make(map[uint32]string)}
	for r.Len() > 0 {
		id, _ := r.ReadByte()
		size, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, err
		}
		sr := binary.NewReader(payload)
		switch id {
		case NameSubsectionModule:
			if ns.ModuleName, err = sr.ReadName(); err != nil {
				return nil, err
			}
		case NameSubsectionFunction:
			assocs, err := readVec(sr, readNameAssoc)
			if err != nil {
				return nil, err
			}
			for _, a := range assocs {
				ns.FuncNames[a.idx] = a.name
			}
		}
	}
	return ns, nil
}

func readFuncType(r *binary.Reader) (FuncType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return FuncType{}, err
	}
	if form != FuncTypeByte {
		return FuncType{}, fmt.Errorf("unsupported type form 0x%02x", form)
	}
	params, err := readValTypes(r)
	if err != nil {
		return FuncType{}, err
	}
	results, err := readValTypes(r)
	return FuncType{Params: params, Results: results}, err
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	raw, err := readVec(r, (*binary.Reader).ReadByte)
	if err != nil {
		return nil, err
	}
	types := make([]ValType, len(raw))
	for i, b := range raw {
		types[i] = ValType(b)
	}
	if len(types) == 0 {
		return nil, nil
	}
	return types, nil
}

func parseTypeSection(r *binary.Reader, m *Module) (err error) {
	m.Types, err = readVec(r, readFuncType)
	return err
}

func readImport(r *binary.Reader) (Import, error) {
	mod, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return Import{}, err
	}
	imp := Import{Module: mod, Name: name, Desc: ImportDesc{Kind: kind}}
	switch kind {
	case KindFunc:
		imp.Desc.TypeIdx, err = r.ReadU32()
	case KindTable:
		var t TableType
		t, err = readTableType(r)
		imp.Desc.Table = &t
	case KindMemory:
		var mt MemoryType
		mt, err = readMemoryType(r)
		imp.Desc.Memory = &mt
	case KindGlobal:
		var g GlobalType
		g, err = readGlobalType(r)
		imp.Desc.Global = &g
	default:
		return Import{}, fmt.Errorf("unknown import kind 0x%02x", kind)
	}
	return imp, err
}

func parseImportSection(r *binary.Reader, m *Module) (err error) {
	m.Imports, err = readVec(r, readImport)
	return err
}

func parseFunctionSection(r *binary.Reader, m *Module) (err error) {
	m.Funcs, err = readVec(r, readU32)
	return err
}

func parseTableSection(r *binary.Reader, m *Module) (err error) {
	m.Tables, err = readVec(r, readTableType)
	return err
}

func parseMemorySection(r *binary.Reader, m *Module) (err error) {
	m.Memories, err = readVec(r, readMemoryType)
	return err
}

func readGlobal(r *binary.Reader) (Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := readInitExpr(r)
	return Global{Type: gt, Init: init}, err
}

func parseGlobalSection(r *binary.Reader, m *Module) (err error) {
	m.Globals, err = readVec(r, readGlobal)
	return err
}

func readExport(r *binary.Reader) (Export, error) {
	name, err := r.ReadName()
	if err != nil {
		return Export{}, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return Export{}, err
	}
	idx, err := r.ReadU32()
	return Export{Name: name, Kind: kind, Idx: idx}, err
}

func parseExportSection(r *binary.Reader, m *Module) (err error) {
	m.Exports, err = readVec(r, readExport)
	return err
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

// readElement handles all eight segment encodings. Flag bit 0 marks
// passive or declarative, bit 1 an explicit table index (or elemkind for
// passive segments), bit 2 expression elements.
func readElement(r *binary.Reader) (Element, error) {
	flags, err := r.ReadU32()
	if err != nil {
		return Element{}, err
	}
	if flags > 7 {
		return Element{}, fmt.Errorf("invalid element segment flags: %d", flags)
	}
	seg := Element{Flags: flags, ElemType: ValFuncRef}
	exprs := flags&0x04 != 0

	if flags&0x01 == 0 {
		if flags&0x02 != 0 {
			if seg.TableIdx, err = r.ReadU32(); err != nil {
				return Element{}, err
			}
		}
		if seg.Offset, err = readInitExpr(r); err != nil {
			return Element{}, err
		}
	}
	if flags&0x03 != 0 {
		kind, err := r.ReadByte()
		if err != nil {
			return Element{}, err
		}
		if exprs {
			seg.ElemType = ValType(kind)
		}
	}

	if exprs {
		seg.Exprs, err = readVec(r, readInitExpr)
	} else {
		seg.FuncIdxs, err = readVec(r, readU32)
	}
	return seg, err
}

func parseElementSection(r *binary.Reader, m *Module) (err error) {
	m.Elements, err = readVec(r, readElement)
	return err
}

func readLocal(r *binary.Reader) (LocalEntry, error) {
	n, err := r.ReadU32()
	if err != nil {
		return LocalEntry{}, err
	}
	t, err := r.ReadByte()
	return LocalEntry{Count: n, ValType: ValType(t)}, err
}

func readFuncBody(r *binary.Reader) (FuncBody, error) {
	size, err := r.ReadU32()
	if err != nil {
		return FuncBody{}, err
	}
	raw, err := r.ReadBytes(int(size))
	if err != nil {
		return FuncBody{}, err
	}
	br := binary.NewReader(raw)
	locals, err := readVec(br, readLocal)
	if err != nil {
		return FuncBody{}, err
	}
	return FuncBody{Locals: locals, Code: br.ReadRemaining()}, nil
}

func parseCodeSection(r *binary.Reader, m *Module) (err error) {
	m.Code, err = readVec(r, readFuncBody)
	return err
}

// readDataSegment reads flags 0 (active, memory 0), 1 (passive) or
// 2 (active, explicit memory).
func readDataSegment(r *binary.Reader) (DataSegment, error) {
	flags, err := r.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	if flags > 2 {
		return DataSegment{}, fmt.Errorf("invalid data segment flags: %d", flags)
	}
	seg := DataSegment{Flags: flags}
	if flags == 2 {
		if seg.MemIdx, err = r.ReadU32(); err != nil {
			return DataSegment{}, err
		}
	}
	if flags != 1 {
		if seg.Offset, err = readInitExpr(r); err != nil {
			return DataSegment{}, err
		}
	}
	n, err := r.ReadU32()
	if err != nil {
		return DataSegment{}, err
	}
	seg.Init, err = r.ReadBytes(int(n))
	return seg, err
}

func parseDataSection(r *binary.Reader, m *Module) (err error) {
	m.Data, err = readVec(r, readDataSegment)
	return err
}

func parseDataCountSection(r *binary.Reader, m *Module) error {
	count, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.DataCount = &count
	return nil
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, err
	}
	if flags != LimitsNoMax && flags != LimitsHasMax {
		return Limits{}, fmt.Errorf("unsupported limits flags 0x%02x", flags)
	}
	var l Limits
	if l.Min, err = r.ReadU32(); err != nil {
		return Limits{}, err
	}
	if flags == LimitsHasMax {
		maxPages, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		if l.Min > maxPages {
			return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, maxPages)
		}
		l.Max = &maxPages
	}
	return l, nil
}

func readTableType(r *binary.Reader) (TableType, error) {
	elem, err := r.ReadByte()
	if err != nil {
		return TableType{}, err
	}
	limits, err := readLimits(r)
	return TableType{ElemType: ValType(elem), Limits: limits}, err
}

func readMemoryType(r *binary.Reader) (MemoryType, error) {
	limits, err := readLimits(r)
	return MemoryType{Limits: limits}, err
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	raw, err := r.ReadBytes(2)
	if err != nil {
		return GlobalType{}, err
	}
	if raw[1] > 1 {
		return GlobalType{}, fmt.Errorf("invalid global mutability 0x%02x", raw[1])
	}
	return GlobalType{ValType: ValType(raw[0]), Mutable: raw[1] == 1}, nil
}

// readInitExpr returns a copy of a constant expression, through and
// including its end opcode.
func readInitExpr(r *binary.Reader) ([]byte, error) {
	start := r.Position()
	for {
		instr, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		if instr.Opcode == OpEnd {
			return append([]byte(nil), r.Slice(start)...), nil
		}
	}
}
