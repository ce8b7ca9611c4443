// Package kmain wires the kernel subsystems together at boot.
package kmain

import (
	"lotusos/kernel"
	"lotusos/kernel/boot"
	"lotusos/kernel/cpu"
	"lotusos/kernel/klog"
	"lotusos/kernel/mm/vmm"
	"lotusos/kernel/sync"
)

var (
	logger = klog.Logger("kmain")

	// The following functions are mocked by tests since they fault when
	// executed in user-mode.
	haltFn          = cpu.Halt
	activePDTFn     = vmm.ActivePageDirectoryTable
	flushTLBEntryFn = cpu.FlushTLBEntry

	// interruptController is installed into the sync package before any
	// lock is taken.
	interruptController sync.InterruptController = cpu.Interrupts{}

	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. The rt0 code passes the boot information decoded by
// the platform layer.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(info *boot.Info) {
	cfg := DefaultConfig()
	klog.SetLevel(cfg.LogLevel)
	sync.SetInterruptController(interruptController)

	mem, err := InitMemory(info, cfg, activePDTFn(), flushTLBEntryFn)
	if err != nil {
		Panic(err)
		return
	}

	logger.Info("memory subsystem ready",
		"free_frames", mem.Frames.Free(),
		"heap_free", mem.Heap.Stats().FreeBytes,
	)

	// Use Panic instead of panic to prevent the compiler from treating
	// Panic as dead-code and eliminating it.
	Panic(errKmainReturned)
}
