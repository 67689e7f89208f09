package wasm

import "strings"

// Module represents a parsed WebAssembly module
type Module struct {
	Start          *uint32
	DataCount      *uint32
	Names          *NameSection
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // Type indices for declared functions
	Tables         []TableType
	Memories       []MemoryType
	Globals        []Global
	Exports        []Export
	Elements       []Element
	Code           []FuncBody
	Data           []DataSegment
	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i64) -> i64".
func (f FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	switch len(f.Results) {
	case 0:
		b.WriteString("()")
	case 1:
		b.WriteString(f.Results[0].String())
	default:
		b.WriteByte('(')
		for i, r := range f.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

// Equal reports whether two signatures have identical params and results.
func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64, etc.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether v is one of the four number types.
func (v ValType) IsNumeric() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	}
	return false
}

// Import represents an imported function, table, memory, or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item.
// Kind uses KindFunc, KindTable, KindMemory, or KindGlobal constants.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// TableType describes a table's element type and limits.
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType describes a linear memory's page limits.
type MemoryType struct {
	Limits Limits
}

// Limits is a min/optional-max pair in pages or elements.
type Limits struct {
	Max *uint32
	Min uint32
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global is a module-defined global with its constant initializer.
type Global struct {
	Init []byte // constant expression including the trailing end
	Type GlobalType
}

// Export represents an exported definition.
type Export struct {
	Name string
	Idx  uint32
	Kind byte
}

// Element is an element segment. Only function-index segments carry
// FuncIdxs; expression segments keep their raw expressions.
type Element struct {
	Offset   []byte
	FuncIdxs []uint32
	Exprs    [][]byte
	Flags    uint32
	TableIdx uint32
	ElemType ValType
}

// Active reports whether the segment is applied at instantiation.
func (e Element) Active() bool {
	return e.Flags&0x01 == 0
}

// FuncBody is one entry of the code section.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // instruction bytes including the trailing end
}

// LocalEntry is a run of locals of the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment is one entry of the data section.
type DataSegment struct {
	Offset []byte
	Init   []byte
	Flags  uint32
	MemIdx uint32
}

// Active reports whether the segment is copied into memory at instantiation.
func (d DataSegment) Active() bool {
	return d.Flags != 1
}

// CustomSection is an uninterpreted custom section.
type CustomSection struct {
	Name string
	Data []byte
}

// NameSection holds the decoded debug names from the "name" custom section.
type NameSection struct {
	FuncNames  map[uint32]string
	ModuleName string
}

// NumImportedFuncs returns the number of function imports.
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			n++
		}
	}
	return n
}

// NumImportedGlobals returns the number of global imports.
func (m *Module) NumImportedGlobals() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindGlobal {
			n++
		}
	}
	return n
}

// NumImportedMemories returns the number of memory imports.
func (m *Module) NumImportedMemories() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			n++
		}
	}
	return n
}

// FuncTypeOf returns the signature of the function at idx in the
// function index space (imports first).
func (m *Module) FuncTypeOf(idx uint32) (FuncType, bool) {
	var funcImport uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if funcImport == idx {
			if int(imp.Desc.TypeIdx) >= len(m.Types) {
				return FuncType{}, false
			}
			return m.Types[imp.Desc.TypeIdx], true
		}
		funcImport++
	}
	local := idx - funcImport
	if int(local) >= len(m.Funcs) {
		return FuncType{}, false
	}
	typeIdx := m.Funcs[local]
	if int(typeIdx) >= len(m.Types) {
		return FuncType{}, false
	}
	return m.Types[typeIdx], true
}

// FuncName returns the debug name of a function, falling back to the
// first export name and then to the import field name.
func (m *Module) FuncName(idx uint32) string {
	if m.Names != nil {
		if name, ok := m.Names.FuncNames[idx]; ok {
			return name
		}
	}
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Idx == idx {
			return exp.Name
		}
	}
	var funcImport uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if funcImport == idx {
			return imp.Module + "." + imp.Name
		}
		funcImport++
	}
	return ""
}

// ExportedFunc finds the function index of an exported function by name.
func (m *Module) ExportedFunc(name string) (uint32, bool) {
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Name == name {
			return exp.Idx, true
		}
	}
	return 0, false
}
