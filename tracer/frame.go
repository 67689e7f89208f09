package tracer

import "github.com/wippyai/wasm-tracer/errors"

// PushFrame opens a call frame, marking it with the latest EID. Call it
// when control enters a callee, before the callee's first step.
func (t *Tracer) PushFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()

	eid := t.etable.LatestEID()
	t.jtable.Enter(eid, t.lastJumpEIDs[len(t.lastJumpEIDs)-1])
	t.lastJumpEIDs = append(t.lastJumpEIDs, eid)
}

// PopFrame closes the innermost call frame. Popping the base marker is a
// programming error and panics with a KindUnderflow *errors.Error.
func (t *Tracer) PopFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.lastJumpEIDs) <= 1 {
		panic(errors.Underflow(errors.PhaseFrame, "frame stack"))
	}
	t.lastJumpEIDs = t.lastJumpEIDs[:len(t.lastJumpEIDs)-1]
	t.jtable.Leave(t.etable.LatestEID())
}

// LastJumpEID returns the marker of the innermost open frame, 0 at top level.
func (t *Tracer) LastJumpEID() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastJumpEIDs[len(t.lastJumpEIDs)-1]
}

// FrameDepth returns the number of open frames above the base marker.
func (t *Tracer) FrameDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastJumpEIDs) - 1
}
