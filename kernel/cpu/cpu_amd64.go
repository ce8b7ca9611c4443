// Package cpu exposes the privileged amd64 instructions that the memory
// subsystem depends on. Most of these functions fault when executed outside
// ring 0, so packages reach them through function variables that tests can
// replace.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// InterruptsEnabled reports whether the IF flag is set in RFLAGS.
func InterruptsEnabled() bool

// Halt stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// Interrupts adapts the interrupt flag primitives to the controller
// interface consumed by the sync package.
type Interrupts struct{}

// Disable clears the interrupt flag and returns whether it was set before
// the call.
func (Interrupts) Disable() bool {
	enabled := InterruptsEnabled()
	DisableInterrupts()
	return enabled
}

// Restore re-enables interrupts if they were enabled before the matching
// Disable call.
func (Interrupts) Restore(wasEnabled bool) {
	if wasEnabled {
		EnableInterrupts()
	}
}
