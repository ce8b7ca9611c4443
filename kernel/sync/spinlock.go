// Package sync provides busy-waiting synchronization primitives for code that
// runs without a scheduler.
package sync

import "sync/atomic"

const (
	// attemptsBeforeYielding is the number of failed compare-and-swap
	// attempts after which a spinning task invokes yieldFn.
	attemptsBeforeYielding = 64
)

var (
	// yieldFn is invoked by spinning tasks after attemptsBeforeYielding
	// failed attempts. It is nil while no scheduler exists; tests set it to
	// runtime.Gosched.
	yieldFn func()
)

// Spinlock is a mutual exclusion lock whose waiters busy-wait.
type Spinlock struct {
	state uint32
}

// Acquire spins until the lock is taken. The lock is not reentrant.
func (l *Spinlock) Acquire() {
	spinUntil(func() bool { return atomic.CompareAndSwapUint32(&l.state, 0, 1) })
}

// TryToAcquire takes the lock if it is free and reports whether it did.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release frees the lock. Releasing a free lock is a no-op.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// spinUntil keeps calling tryFn until it returns true.
func spinUntil(tryFn func() bool) {
	for attempts := 0; !tryFn(); attempts++ {
		if attempts == attemptsBeforeYielding {
			attempts = 0
			if yieldFn != nil {
				yieldFn()
			}
		}
	}
}
