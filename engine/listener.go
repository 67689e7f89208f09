package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-tracer/tables"
	"github.com/wippyai/wasm-tracer/tracer"
	"github.com/wippyai/wasm-tracer/wasm"
)

type phantomFunc struct {
	sig tables.Signature
	fid uint16
}

type activation struct {
	sp      uint32
	index   uint32
	phantom bool
}

// listener turns wazero call events of one guest module into frame
// push/pop on the tracer and synthesizes the steps of phantom calls.
// Calls nested inside a phantom are not traced.
// A nil tracer records nothing but still counts phantom steps.
type listener struct {
	failed   error
	tracer   *tracer.Tracer
	counter  *tracer.StepCounter
	phantoms map[uint32]phantomFunc
	stack    []activation
	inputIdx uint32
	suppress int
	moduleID uint16
}

var (
	_ experimental.FunctionListener        = (*listener)(nil)
	_ experimental.FunctionListenerFactory = (*listener)(nil)
)

func (l *listener) NewFunctionListener(api.FunctionDefinition) experimental.FunctionListener {
	return l
}

func (l *listener) Before(_ context.Context, _ api.Module, def api.FunctionDefinition, params []uint64, _ experimental.StackIterator) {
	if l.failed != nil {
		return
	}
	if l.suppress > 0 {
		l.suppress++
		return
	}

	idx := def.Index()
	_, phantom := l.phantoms[idx]
	// wazero hides the operand stack depth; the parameter count stands in for the SP.
	l.stack = append(l.stack, activation{index: idx, phantom: phantom, sp: uint32(len(params))})
	if phantom {
		l.suppress = 1
	}
	if l.tracer != nil {
		l.tracer.PushFrame()
	}
	Logger().Debug("enter function",
		zap.Uint32("index", idx),
		zap.String("name", def.DebugName()),
		zap.Bool("phantom", phantom))
}

func (l *listener) After(ctx context.Context, mod api.Module, def api.FunctionDefinition, results []uint64) {
	if l.failed != nil {
		return
	}
	if l.suppress > 1 {
		l.suppress--
		return
	}
	a, ok := l.pop()
	if !ok {
		return
	}

	if a.phantom {
		l.suppress = 0
		if err := l.fillPhantom(ctx, mod, a, results); err != nil {
			l.fail(err)
			panic(err)
		}
	}
	if l.tracer != nil {
		l.tracer.PopFrame()
	}
}

func (l *listener) Abort(_ context.Context, _ api.Module, def api.FunctionDefinition, err error) {
	if l.failed != nil {
		return
	}
	if l.suppress > 1 {
		l.suppress--
		return
	}
	a, ok := l.pop()
	if !ok {
		return
	}
	if a.phantom {
		l.suppress = 0
	}
	if l.tracer != nil {
		l.tracer.PopFrame()
	}
	Logger().Warn("function aborted",
		zap.Uint32("index", a.index),
		zap.String("name", def.DebugName()),
		zap.Error(err))
}

func (l *listener) pop() (activation, bool) {
	if len(l.stack) == 0 {
		return activation{}, false
	}
	a := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	return a, true
}

func (l *listener) fillPhantom(ctx context.Context, mod api.Module, a activation, results []uint64) error {
	p := l.phantoms[a.index]
	call := tracer.PhantomCall{
		Signature:    p.sig,
		SP:           a.sp,
		InputFuncIdx: l.inputIdx,
		ModuleID:     l.moduleID,
		FID:          p.fid,
	}
	if p.sig.HasReturn() && len(results) > 0 {
		call.KeepValue = results[0]
	}
	if mem := mod.Memory(); mem != nil {
		call.Pages = mem.Size() / wasm.PageSize
	}
	if l.tracer != nil {
		call.LastJumpEID = l.tracer.LastJumpEID()
	}

	if err := tracer.FillTrace(l.tracer, l.counter, call); err != nil {
		return err
	}
	trace.SpanFromContext(ctx).AddEvent("phantom", trace.WithAttributes(
		attribute.Int("function.index", int(a.index)),
		attribute.Int("fid", int(p.fid)),
		attribute.Int("steps", tracer.PhantomStepCount(p.sig)),
	))
	return nil
}

// fail records the first fatal tracer error. Later events are ignored so
// the unwinding that follows does not touch the frame stack again.
func (l *listener) fail(err error) {
	if l.failed == nil {
		l.failed = err
	}
}

// reset clears per-call state after an exported call returns.
func (l *listener) reset() error {
	err := l.failed
	l.failed = nil
	l.stack = l.stack[:0]
	l.suppress = 0
	return err
}
