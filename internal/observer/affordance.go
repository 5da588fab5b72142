package observer

import (
	"sync"
	"time"
)

// affordance is the per-image state machine:
//
//	idle → hover → saving → success|error → idle
//
// Pointer events only ever move between idle and hover. Saving is exclusive:
// re-activation while a save is in flight is a no-op, and pointer-leave does
// not hide an in-flight control.
type affordance struct {
	mu    sync.Mutex
	state State
	apply func(State)
}

func newAffordance(apply func(State)) *affordance {
	return &affordance{state: StateIdle, apply: apply}
}

func (a *affordance) current() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *affordance) set(s State) {
	a.state = s
	if a.apply != nil {
		a.apply(s)
	}
}

func (a *affordance) pointerEnter() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateIdle {
		a.set(StateHover)
	}
}

func (a *affordance) pointerLeave() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateHover {
		a.set(StateIdle)
	}
}

// beginSave enters saving from idle or hover. It returns false when the
// affordance is already saving or showing a result.
func (a *affordance) beginSave() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle && a.state != StateHover {
		return false
	}
	a.set(StateSaving)
	return true
}

// finish leaves saving for success or error and schedules the automatic
// revert to idle.
func (a *affordance) finish(ok bool, revertAfter time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateSaving {
		return
	}

	final := StateSuccess
	if !ok {
		final = StateError
	}
	a.set(final)

	time.AfterFunc(revertAfter, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.state == final {
			a.set(StateIdle)
		}
	})
}
