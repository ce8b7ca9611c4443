package sync

import "sync/atomic"

// rwWriterBit marks an RWSpinlock as held by a writer. The remaining bits
// count active readers.
const rwWriterBit = uint32(1 << 31)

// RWSpinlock is a reader/writer spinlock. Any number of readers may hold the
// lock at the same time; a writer holds it exclusively. Writers announce
// themselves by setting the writer bit first and then wait for the active
// readers to drain, so new readers cannot starve a waiting writer.
type RWSpinlock struct {
	state uint32
}

// Lock acquires the lock for writing.
func (l *RWSpinlock) Lock() {
	spinUntil(func() bool {
		state := atomic.LoadUint32(&l.state)
		return state&rwWriterBit == 0 && atomic.CompareAndSwapUint32(&l.state, state, state|rwWriterBit)
	})
	spinUntil(func() bool { return atomic.LoadUint32(&l.state) == rwWriterBit })
}

// Unlock releases a lock held for writing.
func (l *RWSpinlock) Unlock() {
	atomic.StoreUint32(&l.state, 0)
}

// RLock acquires the lock for reading.
func (l *RWSpinlock) RLock() {
	spinUntil(func() bool {
		state := atomic.LoadUint32(&l.state)
		return state&rwWriterBit == 0 && atomic.CompareAndSwapUint32(&l.state, state, state+1)
	})
}

// RUnlock releases a lock held for reading.
func (l *RWSpinlock) RUnlock() {
	atomic.AddUint32(&l.state, ^uint32(0))
}
