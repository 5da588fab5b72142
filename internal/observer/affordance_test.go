package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingAffordance() (*affordance, *[]State) {
	var states []State
	a := newAffordance(func(s State) { states = append(states, s) })
	return a, &states
}

func TestPointerEventsOnlyMoveBetweenIdleAndHover(t *testing.T) {
	a, _ := recordingAffordance()

	a.pointerEnter()
	assert.Equal(t, StateHover, a.current())

	a.pointerLeave()
	assert.Equal(t, StateIdle, a.current())

	// Leave from idle stays idle.
	a.pointerLeave()
	assert.Equal(t, StateIdle, a.current())
}

func TestPointerLeaveDoesNotHideInFlightSave(t *testing.T) {
	a, _ := recordingAffordance()
	a.pointerEnter()
	require.True(t, a.beginSave())

	a.pointerLeave()
	assert.Equal(t, StateSaving, a.current())
}

func TestBeginSaveIsExclusive(t *testing.T) {
	a, _ := recordingAffordance()
	require.True(t, a.beginSave())
	assert.False(t, a.beginSave(), "re-activation while saving must be a no-op")

	a.finish(true, time.Hour)
	assert.False(t, a.beginSave(), "result states are not activatable")
}

func TestFinishRevertsToIdle(t *testing.T) {
	a, _ := recordingAffordance()
	require.True(t, a.beginSave())
	a.finish(false, 5*time.Millisecond)
	assert.Equal(t, StateError, a.current())

	assert.Eventually(t, func() bool {
		return a.current() == StateIdle
	}, time.Second, time.Millisecond)
}

func TestFinishWithoutSaveIsIgnored(t *testing.T) {
	a, states := recordingAffordance()
	a.finish(true, time.Millisecond)
	assert.Equal(t, StateIdle, a.current())
	assert.Empty(t, *states)
}
