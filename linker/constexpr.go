package linker

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-tracer/wasm"
)

// evalConst evaluates a constant expression producing a value of type
// want. global.get may only refer to globals initialized before it.
func evalConst(expr []byte, want wasm.ValType, inst *Instance) (uint64, error) {
	instrs, err := wasm.DecodeInstructions(expr)
	if err != nil {
		return 0, err
	}
	if len(instrs) != 2 || instrs[1].Opcode != wasm.OpEnd {
		return 0, fmt.Errorf("constant expression must be one instruction and end, got %d instructions", len(instrs))
	}

	var (
		value uint64
		got   wasm.ValType
	)
	switch imm := instrs[0].Imm.(type) {
	case wasm.I32Imm:
		value, got = uint64(uint32(imm.Value)), wasm.ValI32
	case wasm.I64Imm:
		value, got = uint64(imm.Value), wasm.ValI64
	case wasm.F32Imm:
		value, got = uint64(math.Float32bits(imm.Value)), wasm.ValF32
	case wasm.F64Imm:
		value, got = math.Float64bits(imm.Value), wasm.ValF64
	case wasm.GlobalImm:
		if int(imm.GlobalIdx) >= len(inst.globals) {
			return 0, fmt.Errorf("global.get %d: only %d globals initialized", imm.GlobalIdx, len(inst.globals))
		}
		g := inst.globals[imm.GlobalIdx]
		value, got = g.value, g.typ
	case wasm.RefNullImm:
		value, got = 0, imm.Type
	case wasm.RefFuncImm:
		// funcref values are function indices plus one so null stays zero.
		value, got = uint64(imm.FuncIdx)+1, wasm.ValFuncRef
	default:
		return 0, fmt.Errorf("opcode %s is not constant", wasm.OpcodeName(instrs[0].Opcode))
	}
	if got != want {
		return 0, fmt.Errorf("constant of type %s, want %s", got, want)
	}
	return value, nil
}
