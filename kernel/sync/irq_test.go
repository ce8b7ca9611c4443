package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInterruptController struct {
	enabled           bool
	disables, restore int
}

func (c *fakeInterruptController) Disable() bool {
	c.disables++
	prev := c.enabled
	c.enabled = false
	return prev
}

func (c *fakeInterruptController) Restore(wasEnabled bool) {
	c.restore++
	if wasEnabled {
		c.enabled = true
	}
}

func TestIRQSpinlock(t *testing.T) {
	ctrl := &fakeInterruptController{enabled: true}
	SetInterruptController(ctrl)
	defer SetInterruptController(nil)

	var l IRQSpinlock
	l.Acquire()
	require.False(t, ctrl.enabled, "expected interrupts to be masked while the lock is held")
	l.Release()
	require.True(t, ctrl.enabled, "expected interrupts to be unmasked after release")

	// Interrupts that were masked before Acquire stay masked.
	ctrl.enabled = false
	l.Acquire()
	l.Release()
	require.False(t, ctrl.enabled)
	require.Equal(t, 2, ctrl.disables)
	require.Equal(t, 2, ctrl.restore)
}

func TestIRQRWSpinlock(t *testing.T) {
	ctrl := &fakeInterruptController{enabled: true}
	SetInterruptController(ctrl)
	defer SetInterruptController(nil)

	var l IRQRWSpinlock

	state := l.RLock()
	require.True(t, state)
	require.False(t, ctrl.enabled)
	l.RUnlock(state)
	require.True(t, ctrl.enabled)

	state = l.Lock()
	require.True(t, state)
	require.False(t, ctrl.enabled)
	l.Unlock(state)
	require.True(t, ctrl.enabled)
}

func TestSetInterruptControllerNil(t *testing.T) {
	SetInterruptController(nil)
	require.IsType(t, nopInterruptController{}, irqController)
	require.False(t, irqController.Disable())
}
