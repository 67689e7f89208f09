package export

import (
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

type instructionRow struct {
	Table    string `json:"table"`
	FID      uint16 `json:"fid"`
	IID      uint32 `json:"iid"`
	ModuleID uint16 `json:"module_id"`
	MemoryID uint16 `json:"memory_id"`
	Opcode   string `json:"opcode"`
	Text     string `json:"text"`
}

func instructionRowOf(e tables.InstructionTableEntry) instructionRow {
	return instructionRow{
		Table:    TableInstruction,
		FID:      e.FID,
		IID:      e.IID,
		ModuleID: e.ModuleID,
		MemoryID: e.MemoryID,
		Opcode:   wasm.OpcodeName(e.Opcode.Opcode),
		Text:     e.Opcode.String(),
	}
}

type initMemoryRow struct {
	Table      string              `json:"table"`
	Location   tables.LocationType `json:"location"`
	InstanceID uint16              `json:"instance_id"`
	Offset     uint32              `json:"offset"`
	Value      uint64              `json:"value"`
	ValueType  tables.ValueType    `json:"value_type"`
	Mutable    bool                `json:"mutable"`
}

func initMemoryRowOf(e tables.InitMemoryTableEntry) initMemoryRow {
	return initMemoryRow{
		Table:      TableInitMemory,
		Location:   e.LocationType,
		InstanceID: e.InstanceID,
		Offset:     e.Offset,
		Value:      e.Value,
		ValueType:  e.ValueType,
		Mutable:    e.IsMutable,
	}
}

type executionRow struct {
	Table       string  `json:"table"`
	EID         uint32  `json:"eid"`
	FID         uint16  `json:"fid"`
	IID         uint32  `json:"iid"`
	SP          uint32  `json:"sp"`
	Pages       uint32  `json:"pages"`
	LastJumpEID uint32  `json:"last_jump_eid"`
	Opcode      string  `json:"opcode"`
	Step        stepRow `json:"step"`
}

func executionRowOf(e tables.ExecutionTableEntry) executionRow {
	return executionRow{
		Table:       TableExecution,
		EID:         e.EID,
		FID:         e.Instruction.FID,
		IID:         e.Instruction.IID,
		SP:          e.SP,
		Pages:       e.AllocatedMemoryPages,
		LastJumpEID: e.LastJumpEID,
		Opcode:      e.Instruction.Opcode.String(),
		Step:        stepRowOf(e.Step),
	}
}

// stepRow flattens every StepInfo variant into one object; fields a
// variant does not carry are omitted.
type stepRow struct {
	Kind       string             `json:"kind"`
	Value      *int64             `json:"value,omitempty"`
	Result     *int32             `json:"result,omitempty"`
	Plugin     tables.HostPlugin  `json:"plugin,omitempty"`
	Function   string             `json:"function,omitempty"`
	Params     []tables.ValueType `json:"params,omitempty"`
	ReturnType *tables.ValueType  `json:"return_type,omitempty"`
	Args       []uint64           `json:"args,omitempty"`
	Ret        *uint64            `json:"ret,omitempty"`
	HostIndex  *int               `json:"host_index,omitempty"`
	OpIndex    *int               `json:"op_index,omitempty"`
	Drop       *uint32            `json:"drop,omitempty"`
	Keep       []tables.ValueType `json:"keep,omitempty"`
	KeepValues []uint64           `json:"keep_values,omitempty"`
}

func stepRowOf(step tables.StepInfo) stepRow {
	if step == nil {
		return stepRow{Kind: "none"}
	}
	row := stepRow{Kind: step.Kind()}
	switch s := step.(type) {
	case tables.I32Const:
		v := int64(s.Value)
		row.Value = &v
	case tables.CallHost:
		row.Plugin = s.Plugin
		row.Function = s.FunctionName
		row.Params = s.Signature.Params
		if s.Signature.HasReturn() {
			row.ReturnType = &s.Signature.Return
		}
		row.Args = s.Args
		row.Ret = s.Ret
		row.HostIndex = &s.HostFunctionIdx
		row.OpIndex = &s.OpIndexInPlugin
	case tables.I32WrapI64:
		row.Value = &s.Value
		row.Result = &s.Result
	case tables.Return:
		row.Drop = &s.Drop
		row.Keep = s.Keep
		row.KeepValues = s.KeepValues
	}
	return row
}

type frameRow struct {
	Table       string `json:"table"`
	EID         uint32 `json:"eid"`
	LastJumpEID uint32 `json:"last_jump_eid"`
	ReturnEID   uint32 `json:"return_eid"`
	Returned    bool   `json:"returned"`
}

func frameRowOf(e tables.FrameTableEntry) frameRow {
	return frameRow{
		Table:       TableFrame,
		EID:         e.EID,
		LastJumpEID: e.LastJumpEID,
		ReturnEID:   e.ReturnEID,
		Returned:    e.Returned,
	}
}
