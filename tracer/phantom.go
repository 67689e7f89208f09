package tracer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/errors"
	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/wasm"
)

// PhantomCall describes one invocation of a phantom function: a function
// whose effect is replaced in the trace by fetching its result from the
// input host function.
type PhantomCall struct {
	Signature tables.Signature
	// KeepValue is the value the call returned; ignored without a result.
	KeepValue uint64
	// SP is the stack pointer on entry to the phantom body.
	SP          uint32
	Pages       uint32
	LastJumpEID uint32
	// InputFuncIdx is the raw index of the input host function in the
	// calling module.
	InputFuncIdx uint32
	ModuleID     uint16
	FID          uint16
}

// BuildPhantomInstructions returns the body a phantom function with
// signature sig is traced as:
//
//	i32.const 0          ;; only with a result
//	call inputFuncIdx    ;; only with a result
//	i32.wrap_i64         ;; only with a non-i64 result
//	return               ;; drops the params, keeps the result
func BuildPhantomInstructions(sig tables.Signature, inputFuncIdx uint32) []wasm.Instruction {
	instrs := make([]wasm.Instruction, 0, 4)
	var keep []wasm.ValType

	if sig.HasReturn() {
		instrs = append(instrs,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: inputFuncIdx}},
		)
		if sig.Return != tables.ValueTypeI64 {
			instrs = append(instrs, wasm.Instruction{Opcode: wasm.OpI32WrapI64})
		}
		keep = []wasm.ValType{sig.Return.ValType()}
	}

	return append(instrs, wasm.Instruction{
		Opcode: wasm.OpReturn,
		Imm:    wasm.DropKeepImm{Drop: uint32(len(sig.Params)), Keep: keep},
	})
}

// PhantomStepCount returns how many steps a phantom call with signature
// sig contributes: 1 without a result, 3 for an i64 result, 4 otherwise.
func PhantomStepCount(sig tables.Signature) int {
	switch {
	case !sig.HasReturn():
		return 1
	case sig.Return == tables.ValueTypeI64:
		return 3
	default:
		return 4
	}
}

type phantomStep struct {
	step tables.StepInfo
	sp   uint32
}

// FillTrace appends the synthesized steps of one phantom call to t's
// execution table, at iids 0, 1, 2, ... of call.FID. A nil t means
// tracing is disabled. The counter advances by one per step either way.
func FillTrace(t *Tracer, counter *StepCounter, call PhantomCall) error {
	instrs := BuildPhantomInstructions(call.Signature, call.InputFuncIdx)
	if t == nil {
		for range instrs {
			counter.Add(1)
		}
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	steps, inputFID, err := t.phantomSteps(call)
	if err != nil {
		return err
	}
	if len(steps) != len(instrs) {
		return errors.New(errors.PhasePhantom, errors.KindInvalidData).
			Detail("%d steps for %d instructions", len(steps), len(instrs)).
			Build()
	}

	for iid, instr := range instrs {
		if instr.Opcode == wasm.OpCall {
			instr = instr.WithCallTarget(uint32(inputFID))
		}
		t.etable.Push(tables.InstructionTableEntry{
			ModuleID: call.ModuleID,
			MemoryID: call.ModuleID,
			FID:      call.FID,
			IID:      uint32(iid),
			Opcode:   instr,
		}, steps[iid].sp, call.Pages, call.LastJumpEID, steps[iid].step)
		counter.Add(1)
	}

	t.log.Debug("filled phantom trace",
		zap.Uint16("fid", call.FID),
		zap.Int("steps", len(steps)),
		zap.Uint32("eid", t.etable.LatestEID()))
	return nil
}

// FillTraceCount advances the counter exactly as FillTrace would for sig.
func FillTraceCount(counter *StepCounter, sig tables.Signature) {
	counter.Add(uint64(PhantomStepCount(sig)))
}

// phantomSteps pairs each synthesized instruction with its step record
// and returns the stable id of the input function.
func (t *Tracer) phantomSteps(call PhantomCall) ([]phantomStep, uint16, error) {
	sig := call.Signature
	var steps []phantomStep
	var inputFID uint16

	if sig.HasReturn() {
		input, err := t.funcDescByIndex(call.ModuleID, call.InputFuncIdx)
		if err != nil {
			return nil, 0, err
		}
		host, ok := input.Host()
		if !ok {
			return nil, 0, errors.TypeMismatch(errors.PhasePhantom,
				[]string{"function", fmt.Sprint(call.InputFuncIdx)}, "host function", "wasm function")
		}
		inputFID = input.FID
		ret := call.KeepValue

		steps = append(steps,
			phantomStep{sp: call.SP, step: tables.I32Const{Value: 0}},
			phantomStep{sp: call.SP + 1, step: tables.CallHost{
				Plugin:          host.Plugin,
				HostFunctionIdx: host.HostIndex,
				FunctionName:    host.Name,
				Signature:       input.Signature,
				Args:            []uint64{0},
				Ret:             &ret,
				OpIndexInPlugin: host.OpIndexInPlugin,
			}},
		)
		if sig.Return != tables.ValueTypeI64 {
			steps = append(steps, phantomStep{sp: call.SP + 1, step: tables.I32WrapI64{
				Value:  int64(call.KeepValue),
				Result: int32(call.KeepValue),
			}})
		}
	}

	ret := tables.Return{Drop: uint32(len(sig.Params))}
	sp := call.SP
	if sig.HasReturn() {
		ret.Keep = []tables.ValueType{sig.Return}
		ret.KeepValues = []uint64{call.KeepValue}
		sp++
	}
	return append(steps, phantomStep{sp: sp, step: ret}), inputFID, nil
}
