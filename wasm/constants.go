package wasm

// Binary header
const (
	Magic   uint32 = 0x6D736100 // "\0asm"
	Version uint32 = 1
)

// Section IDs
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
)

// Import/export kinds
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Value types
const (
	ValI32     ValType = 0x7F
	ValI64     ValType = 0x7E
	ValF32     ValType = 0x7D
	ValF64     ValType = 0x7C
	ValFuncRef ValType = 0x70
	ValExtern  ValType = 0x6F
)

// FuncTypeByte prefixes every entry of the type section.
const FuncTypeByte byte = 0x60

// BlockTypeEmpty is the block type of a block without results.
const BlockTypeEmpty int32 = -64

// Limits flags
const (
	LimitsNoMax  byte = 0x00
	LimitsHasMax byte = 0x01
)

// PageSize is the size of one linear memory page in bytes.
const PageSize = 65536

// Control instructions
const (
	OpUnreachable  byte = 0x00
	OpNop          byte = 0x01
	OpBlock        byte = 0x02
	OpLoop         byte = 0x03
	OpIf           byte = 0x04
	OpElse         byte = 0x05
	OpEnd          byte = 0x0B
	OpBr           byte = 0x0C
	OpBrIf         byte = 0x0D
	OpBrTable      byte = 0x0E
	OpReturn       byte = 0x0F
	OpCall         byte = 0x10
	OpCallIndirect byte = 0x11
)

// Parametric instructions
const (
	OpDrop        byte = 0x1A
	OpSelect      byte = 0x1B
	OpSelectTyped byte = 0x1C
)

// Variable instructions
const (
	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpLocalTee  byte = 0x22
	OpGlobalGet byte = 0x23
	OpGlobalSet byte = 0x24
)

// Table instructions
const (
	OpTableGet byte = 0x25
	OpTableSet byte = 0x26
)

// Memory instructions
const (
	OpI32Load    byte = 0x28
	OpI64Load    byte = 0x29
	OpF32Load    byte = 0x2A
	OpF64Load    byte = 0x2B
	OpI32Load8S  byte = 0x2C
	OpI32Load8U  byte = 0x2D
	OpI32Load16S byte = 0x2E
	OpI32Load16U byte = 0x2F
	OpI64Load8S  byte = 0x30
	OpI64Load8U  byte = 0x31
	OpI64Load16S byte = 0x32
	OpI64Load16U byte = 0x33
	OpI64Load32S byte = 0x34
	OpI64Load32U byte = 0x35
	OpI32Store   byte = 0x36
	OpI64Store   byte = 0x37
	OpF32Store   byte = 0x38
	OpF64Store   byte = 0x39
	OpI32Store8  byte = 0x3A
	OpI32Store16 byte = 0x3B
	OpI64Store8  byte = 0x3C
	OpI64Store16 byte = 0x3D
	OpI64Store32 byte = 0x3E
	OpMemorySize byte = 0x3F
	OpMemoryGrow byte = 0x40
)

// Constants
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44
)

// Numeric instructions the tracer refers to by name. Every opcode in
// [OpI32Eqz, OpI64Extend32S] takes no immediate; mnemonics live in names.go.
const (
	OpI32Eqz        byte = 0x45
	OpI32Add        byte = 0x6A
	OpI32Sub        byte = 0x6B
	OpI32Mul        byte = 0x6C
	OpI64Add        byte = 0x7C
	OpI32WrapI64    byte = 0xA7
	OpI64ExtendI32S byte = 0xAC
	OpI64ExtendI32U byte = 0xAD
	OpI64Extend32S  byte = 0xC4
)

// Reference instructions
const (
	OpRefNull   byte = 0xD0
	OpRefIsNull byte = 0xD1
	OpRefFunc   byte = 0xD2
)

// OpPrefixMisc introduces saturating truncation and bulk memory/table
// instructions; the sub-opcode follows as a LEB128 u32.
const OpPrefixMisc byte = 0xFC

// Misc sub-opcodes
const (
	MiscI32TruncSatF32S uint32 = 0x00
	MiscI64TruncSatF64U uint32 = 0x07
	MiscMemoryInit      uint32 = 0x08
	MiscDataDrop        uint32 = 0x09
	MiscMemoryCopy      uint32 = 0x0A
	MiscMemoryFill      uint32 = 0x0B
	MiscTableInit       uint32 = 0x0C
	MiscElemDrop        uint32 = 0x0D
	MiscTableCopy       uint32 = 0x0E
	MiscTableGrow       uint32 = 0x0F
	MiscTableSize       uint32 = 0x10
	MiscTableFill       uint32 = 0x11
)

// CustomSectionName is the name of the custom section carrying debug names.
const CustomSectionName = "name"

// Subsections of the name custom section
const (
	NameSubsectionModule   byte = 0
	NameSubsectionFunction byte = 1
)
