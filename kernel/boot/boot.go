// Package boot defines the already-decoded boot information handed to the
// kernel by the platform layer.
package boot

import (
	"log/slog"
	"strconv"
)

// EntryType defines the kind of a MemoryMapEntry.
type EntryType uint32

const (
	// Usable indicates that the memory region is available for use.
	Usable EntryType = iota + 1

	// Reserved indicates that the memory region is not available for use.
	Reserved

	// AcpiReclaimable indicates a memory region that holds ACPI tables that
	// can be reused by the OS once parsed.
	AcpiReclaimable

	// AcpiNonVolatile indicates memory that must be preserved across sleep
	// states.
	AcpiNonVolatile

	// BadMemory marks physical memory reported as defective.
	BadMemory

	// Framebuffer marks memory backing a linear framebuffer.
	Framebuffer

	// KernelAndModules marks memory occupied by the kernel image and the
	// modules loaded alongside it.
	KernelAndModules

	// Any value >= entryUnknown is treated as Reserved.
	entryUnknown
)

// String implements fmt.Stringer for EntryType.
func (t EntryType) String() string {
	switch t {
	case Usable:
		return "usable"
	case Reserved:
		return "reserved"
	case AcpiReclaimable:
		return "ACPI (reclaimable)"
	case AcpiNonVolatile:
		return "ACPI NVS"
	case BadMemory:
		return "bad memory"
	case Framebuffer:
		return "framebuffer"
	case KernelAndModules:
		return "kernel and modules"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes the physical range [Base, Base+Length) and its
// type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	Base uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type EntryType
}

// End returns the first physical address past the region.
func (e MemoryMapEntry) End() uint64 {
	return e.Base + e.Length
}

// IsUsable returns true if the region may be handed out by the frame
// allocator.
func (e MemoryMapEntry) IsUsable() bool {
	return e.Type == Usable
}

// MemRegionVisitor defines a visitor function that gets invoked by Visit for
// each memory region. The visitor must return true to continue or false to
// abort the scan.
type MemRegionVisitor func(*MemoryMapEntry) bool

// MemoryMap is the ordered list of memory regions reported by the boot
// loader. It is never modified after boot.
type MemoryMap []MemoryMapEntry

// Visit invokes visitor for each entry. Entries with an unknown type are
// presented as Reserved; the map itself is left untouched.
func (m MemoryMap) Visit(visitor MemRegionVisitor) {
	for i := range m {
		entry := m[i]
		if entry.Type == 0 || entry.Type >= entryUnknown {
			entry.Type = Reserved
		}

		if !visitor(&entry) {
			return
		}
	}
}

// HighestEnd returns the end address of the entry that reaches furthest into
// the physical address space.
func (m MemoryMap) HighestEnd() uint64 {
	var end uint64
	for _, entry := range m {
		if entry.End() > end {
			end = entry.End()
		}
	}
	return end
}

// UsableBytes returns the total length of all Usable entries.
func (m MemoryMap) UsableBytes() uint64 {
	var total uint64
	m.Visit(func(entry *MemoryMapEntry) bool {
		if entry.IsUsable() {
			total += entry.Length
		}
		return true
	})
	return total
}

// Log writes the memory map to logger, one record per entry.
func (m MemoryMap) Log(logger *slog.Logger) {
	logger.Info("system memory map")
	m.Visit(func(entry *MemoryMapEntry) bool {
		logger.Info("memory region",
			slog.String("start", hex(entry.Base)),
			slog.String("end", hex(entry.End())),
			slog.Uint64("size", entry.Length),
			slog.String("type", entry.Type.String()),
		)
		return true
	})
	logger.Info("available memory", slog.Uint64("kb", m.UsableBytes()/1024))
}

// KernelAddress describes where the kernel image was loaded.
type KernelAddress struct {
	PhysicalBase uint64
	VirtualBase  uint64
}

// Info groups everything the boot layer passes to the kernel entry point.
type Info struct {
	MemoryMap MemoryMap
	Kernel    KernelAddress

	// PhysicalMemoryOffset is the virtual address at which the boot loader
	// mapped all of physical memory.
	PhysicalMemoryOffset uint64
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}
