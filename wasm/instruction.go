package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-tracer/wasm/internal/binary"
)

// Instruction represents a decoded WebAssembly instruction
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm holds the block type for block, loop and if instructions.
type BlockImm struct {
	Type int32 // Block type: -64=void, -1=i32, -2=i64, -3=f32, -4=f64, >=0=type index
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call instruction.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Offset uint32
	Align  uint32
}

// MemoryIdxImm holds the reserved memory index byte of memory.size and memory.grow.
type MemoryIdxImm struct {
	MemIdx byte
}

// I32Imm holds the value of i32.const.
type I32Imm struct {
	Value int32
}

// I64Imm holds the value of i64.const.
type I64Imm struct {
	Value int64
}

// F32Imm holds the value of f32.const.
type F32Imm struct {
	Value float32
}

// F64Imm holds the value of f64.const.
type F64Imm struct {
	Value float64
}

// TableImm holds the table index of table.get and table.set.
type TableImm struct {
	TableIdx uint32
}

// RefNullImm holds the reference type of ref.null.
type RefNullImm struct {
	Type ValType
}

// RefFuncImm holds the function index of ref.func.
type RefFuncImm struct {
	FuncIdx uint32
}

// SelectTypeImm holds the result types of a typed select.
type SelectTypeImm struct {
	Types []ValType
}

// MiscImm holds a 0xFC prefixed instruction: its sub-opcode and the
// index operands it carries, in encoding order.
type MiscImm struct {
	Operands  []uint32
	SubOpcode uint32
}

// DropKeepImm annotates a synthesized return with the values it drops
// and keeps. It has no binary encoding: the instruction encodes as a
// plain return.
type DropKeepImm struct {
	Keep []ValType
	Drop uint32
}

// GetCallTarget returns the callee index of a direct call.
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode != OpCall {
		return 0, false
	}
	imm, ok := i.Imm.(CallImm)
	if !ok {
		return 0, false
	}
	return imm.FuncIdx, true
}

// IsIndirectCall reports whether the instruction is call_indirect.
func (i Instruction) IsIndirectCall() bool {
	return i.Opcode == OpCallIndirect
}

// WithCallTarget returns a copy of a call instruction retargeted to idx.
// Any other instruction is returned unchanged.
func (i Instruction) WithCallTarget(idx uint32) Instruction {
	if i.Opcode != OpCall {
		return i
	}
	return Instruction{Opcode: OpCall, Imm: CallImm{FuncIdx: idx}}
}

// String renders the instruction in text-format style, e.g. "call 3".
func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case nil:
		return name
	case BlockImm:
		if imm.Type == BlockTypeEmpty {
			return name
		}
		if imm.Type >= 0 {
			return fmt.Sprintf("%s (type %d)", name, imm.Type)
		}
		return fmt.Sprintf("%s (result %s)", name, ValType(byte(imm.Type)&0x7F))
	case BranchImm:
		return fmt.Sprintf("%s %d", name, imm.LabelIdx)
	case BrTableImm:
		return fmt.Sprintf("%s %v %d", name, imm.Labels, imm.Default)
	case CallImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case CallIndirectImm:
		return fmt.Sprintf("%s %d (type %d)", name, imm.TableIdx, imm.TypeIdx)
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.LocalIdx)
	case GlobalImm:
		return fmt.Sprintf("%s %d", name, imm.GlobalIdx)
	case MemoryImm:
		return fmt.Sprintf("%s offset=%d align=%d", name, imm.Offset, 1<<imm.Align)
	case MemoryIdxImm:
		return name
	case I32Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case I64Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case F32Imm:
		return fmt.Sprintf("%s %v", name, imm.Value)
	case F64Imm:
		return fmt.Sprintf("%s %v", name, imm.Value)
	case TableImm:
		return fmt.Sprintf("%s %d", name, imm.TableIdx)
	case RefNullImm:
		return fmt.Sprintf("%s %s", name, imm.Type)
	case RefFuncImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case SelectTypeImm:
		return fmt.Sprintf("%s %v", name, imm.Types)
	case DropKeepImm:
		return fmt.Sprintf("%s drop=%d keep=%v", name, imm.Drop, imm.Keep)
	case MiscImm:
		s := MiscName(imm.SubOpcode)
		for _, op := range imm.Operands {
			s += fmt.Sprintf(" %d", op)
		}
		return s
	default:
		return fmt.Sprintf("%s %v", name, imm)
	}
}

// DecodeInstructions decodes a function body's instruction bytes. The
// result is indexed by program counter: entry n is the n-th instruction.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := binary.NewReader(code)
	// Pre-allocate based on estimation: roughly 2 bytes per instruction on average
	instrs := make([]Instruction, 0, len(code)/2)

	for r.Len() > 0 {
		instr, err := decodeInstruction(r)
		if err != nil {
			return nil, r.WrapError(fmt.Sprintf("instruction %d", len(instrs)), err)
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

// DecodeInstructionAt decodes the single instruction starting at byte
// offset pos and returns it together with its encoded length.
func DecodeInstructionAt(code []byte, pos int) (Instruction, int, error) {
	if pos < 0 || pos >= len(code) {
		return Instruction{}, 0, fmt.Errorf("position %d outside code of length %d", pos, len(code))
	}
	r := binary.NewReader(code[pos:])
	instr, err := decodeInstruction(r)
	if err != nil {
		return Instruction{}, 0, r.WrapError("instruction", err)
	}
	return instr, r.Position(), nil
}

func decodeInstruction(r *binary.Reader) (Instruction, error) {
	op, err := r.ReadByte()
	if err != nil {
		return Instruction{}, err
	}
	instr := Instruction{Opcode: op}

	switch op {
	case OpBlock, OpLoop, OpIf:
		bt, err := r.ReadS32()
		if err != nil {
			return instr, err
		}
		instr.Imm = BlockImm{Type: bt}

	case OpBr, OpBrIf:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = BranchImm{LabelIdx: idx}

	case OpBrTable:
		count, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		if int(count) > r.Len() {
			return instr, fmt.Errorf("br_table label count %d exceeds remaining bytes", count)
		}
		labels := make([]uint32, count)
		for i := range labels {
			labels[i], err = r.ReadU32()
			if err != nil {
				return instr, err
			}
		}
		def, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = BrTableImm{Labels: labels, Default: def}

	case OpCall:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = CallImm{FuncIdx: idx}

	case OpCallIndirect:
		typeIdx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		tableIdx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}

	case OpSelectTyped:
		count, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		if int(count) > r.Len() {
			return instr, fmt.Errorf("select type count %d exceeds remaining bytes", count)
		}
		types := make([]ValType, count)
		for i := range types {
			b, err := r.ReadByte()
			if err != nil {
				return instr, err
			}
			types[i] = ValType(b)
		}
		instr.Imm = SelectTypeImm{Types: types}

	case OpLocalGet, OpLocalSet, OpLocalTee:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = LocalImm{LocalIdx: idx}

	case OpGlobalGet, OpGlobalSet:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = GlobalImm{GlobalIdx: idx}

	case OpTableGet, OpTableSet:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = TableImm{TableIdx: idx}

	case OpMemorySize, OpMemoryGrow:
		b, err := r.ReadByte()
		if err != nil {
			return instr, err
		}
		instr.Imm = MemoryIdxImm{MemIdx: b}

	case OpI32Const:
		v, err := r.ReadS32()
		if err != nil {
			return instr, err
		}
		instr.Imm = I32Imm{Value: v}

	case OpI64Const:
		v, err := r.ReadS64()
		if err != nil {
			return instr, err
		}
		instr.Imm = I64Imm{Value: v}

	case OpF32Const:
		v, err := r.ReadF32()
		if err != nil {
			return instr, err
		}
		instr.Imm = F32Imm{Value: v}

	case OpF64Const:
		v, err := r.ReadF64()
		if err != nil {
			return instr, err
		}
		instr.Imm = F64Imm{Value: v}

	case OpRefNull:
		b, err := r.ReadByte()
		if err != nil {
			return instr, err
		}
		instr.Imm = RefNullImm{Type: ValType(b)}

	case OpRefFunc:
		idx, err := r.ReadU32()
		if err != nil {
			return instr, err
		}
		instr.Imm = RefFuncImm{FuncIdx: idx}

	case OpPrefixMisc:
		imm, err := decodeMiscImmediate(r)
		if err != nil {
			return instr, err
		}
		instr.Imm = imm

	case OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect, OpRefIsNull:
		// no immediate

	default:
		switch {
		case op >= OpI32Load && op <= OpI64Store32:
			imm, err := readMemArg(r)
			if err != nil {
				return instr, err
			}
			instr.Imm = imm
		case op >= OpI32Eqz && op <= OpI64Extend32S:
			// numeric, no immediate
		default:
			return instr, fmt.Errorf("unsupported opcode 0x%02x", op)
		}
	}
	return instr, nil
}

func decodeMiscImmediate(r *binary.Reader) (MiscImm, error) {
	sub, err := r.ReadU32()
	if err != nil {
		return MiscImm{}, err
	}
	imm := MiscImm{SubOpcode: sub}
	var n int
	switch sub {
	case MiscMemoryInit, MiscMemoryCopy, MiscTableInit, MiscTableCopy:
		n = 2
	case MiscDataDrop, MiscMemoryFill, MiscElemDrop, MiscTableGrow, MiscTableSize, MiscTableFill:
		n = 1
	default:
		if sub > MiscI64TruncSatF64U {
			return MiscImm{}, fmt.Errorf("unsupported 0xfc sub-opcode %d", sub)
		}
	}
	for i := 0; i < n; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return MiscImm{}, err
		}
		imm.Operands = append(imm.Operands, v)
	}
	return imm, nil
}

func readMemArg(r *binary.Reader) (MemoryImm, error) {
	align, err := r.ReadU32()
	if err != nil {
		return MemoryImm{}, err
	}
	offset, err := r.ReadU32()
	if err != nil {
		return MemoryImm{}, err
	}
	return MemoryImm{Align: align, Offset: offset}, nil
}

// EncodeInstruction encodes a single instruction.
func EncodeInstruction(instr Instruction) []byte {
	w := binary.NewWriter()
	encodeInstructionTo(w, &instr)
	return w.Bytes()
}

// EncodeInstructions encodes a sequence of instructions.
func EncodeInstructions(instrs []Instruction) []byte {
	w := binary.NewWriter()
	for i := range instrs {
		encodeInstructionTo(w, &instrs[i])
	}
	return w.Bytes()
}

func encodeInstructionTo(w *binary.Writer, instr *Instruction) {
	w.Byte(instr.Opcode)

	switch imm := instr.Imm.(type) {
	case BlockImm:
		w.WriteS32(imm.Type)
	case BranchImm:
		w.WriteU32(imm.LabelIdx)
	case BrTableImm:
		w.WriteU32(uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			w.WriteU32(l)
		}
		w.WriteU32(imm.Default)
	case CallImm:
		w.WriteU32(imm.FuncIdx)
	case CallIndirectImm:
		w.WriteU32(imm.TypeIdx)
		w.WriteU32(imm.TableIdx)
	case SelectTypeImm:
		w.WriteU32(uint32(len(imm.Types)))
		for _, t := range imm.Types {
			w.Byte(byte(t))
		}
	case LocalImm:
		w.WriteU32(imm.LocalIdx)
	case GlobalImm:
		w.WriteU32(imm.GlobalIdx)
	case TableImm:
		w.WriteU32(imm.TableIdx)
	case MemoryImm:
		w.WriteU32(imm.Align)
		w.WriteU32(imm.Offset)
	case MemoryIdxImm:
		w.Byte(imm.MemIdx)
	case I32Imm:
		w.WriteS32(imm.Value)
	case I64Imm:
		w.WriteS64(imm.Value)
	case F32Imm:
		w.WriteF32(imm.Value)
	case F64Imm:
		w.WriteF64(imm.Value)
	case RefNullImm:
		w.Byte(byte(imm.Type))
	case RefFuncImm:
		w.WriteU32(imm.FuncIdx)
	case MiscImm:
		w.WriteU32(imm.SubOpcode)
		for _, op := range imm.Operands {
			w.WriteU32(op)
		}
	}
}
