package kmain

import (
	"log/slog"

	"lotusos/kernel/mm"
)

// Config holds the boot-time tunables of the memory subsystem.
type Config struct {
	// HeapInitialSize is the amount of memory mapped for the heap at boot.
	HeapInitialSize mm.Size

	// HeapGrowSize is the minimum amount of memory mapped each time the
	// heap runs out of free regions.
	HeapGrowSize mm.Size

	// HeapWindowStart and HeapWindowEnd bound the virtual range that the
	// heap is mapped into.
	HeapWindowStart uint64
	HeapWindowEnd   uint64

	// DirectMapOffset overrides the physical memory offset reported by the
	// boot loader when non-zero.
	DirectMapOffset uintptr

	LogLevel slog.Level
}

// DefaultConfig returns the configuration used by Kmain.
func DefaultConfig() Config {
	return Config{
		HeapInitialSize: 1 * mm.Mb,
		HeapGrowSize:    256 * mm.Kb,
		HeapWindowStart: 0xffff_c000_0000_0000,
		HeapWindowEnd:   0xffff_c080_0000_0000,
		LogLevel:        slog.LevelInfo,
	}
}
