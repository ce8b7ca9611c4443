package sync

// InterruptController masks and unmasks interrupts on the current CPU.
type InterruptController interface {
	// Disable masks interrupts and reports whether they were enabled
	// before the call.
	Disable() bool

	// Restore unmasks interrupts if wasEnabled is true.
	Restore(wasEnabled bool)
}

type nopInterruptController struct{}

func (nopInterruptController) Disable() bool { return false }
func (nopInterruptController) Restore(bool)  {}

// irqController is used by the IRQ-safe locks. Hosted builds keep the no-op
// controller since CLI/STI fault outside ring 0.
var irqController InterruptController = nopInterruptController{}

// SetInterruptController installs the controller used by IRQSpinlock and
// IRQRWSpinlock. Passing nil restores the no-op controller.
func SetInterruptController(ctrl InterruptController) {
	if ctrl == nil {
		ctrl = nopInterruptController{}
	}
	irqController = ctrl
}

// IRQSpinlock is a Spinlock that keeps interrupts masked on the current CPU
// while held. An interrupt handler that needs the same lock can therefore
// never preempt the holder and spin forever.
type IRQSpinlock struct {
	lock       Spinlock
	irqEnabled bool
}

// Acquire masks interrupts and then blocks until the lock is acquired.
func (l *IRQSpinlock) Acquire() {
	enabled := irqController.Disable()
	l.lock.Acquire()
	l.irqEnabled = enabled
}

// Release releases the lock and restores the interrupt state observed by the
// matching Acquire.
func (l *IRQSpinlock) Release() {
	enabled := l.irqEnabled
	l.lock.Release()
	irqController.Restore(enabled)
}

// IRQRWSpinlock is the interrupt-safe counterpart of RWSpinlock. Since many
// readers may hold it at once, each acquire returns the interrupt state that
// must be handed back to the matching release.
type IRQRWSpinlock struct {
	lock RWSpinlock
}

// Lock masks interrupts and acquires the lock for writing.
func (l *IRQRWSpinlock) Lock() bool {
	enabled := irqController.Disable()
	l.lock.Lock()
	return enabled
}

// Unlock releases a write lock and restores the interrupt state.
func (l *IRQRWSpinlock) Unlock(irqEnabled bool) {
	l.lock.Unlock()
	irqController.Restore(irqEnabled)
}

// RLock masks interrupts and acquires the lock for reading.
func (l *IRQRWSpinlock) RLock() bool {
	enabled := irqController.Disable()
	l.lock.RLock()
	return enabled
}

// RUnlock releases a read lock and restores the interrupt state.
func (l *IRQRWSpinlock) RUnlock(irqEnabled bool) {
	l.lock.RUnlock()
	irqController.Restore(irqEnabled)
}
