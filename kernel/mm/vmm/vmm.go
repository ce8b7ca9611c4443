// Package vmm implements the amd64 4-level page table walker used to create,
// query and remove virtual to physical mappings.
//
// The Manager does not serialize access to the tables it edits: callers must
// ensure that no two goroutines mutate the same address space at once.
package vmm

import (
	"lotusos/kernel"
	"lotusos/kernel/cpu"
	"lotusos/kernel/klog"
	"lotusos/kernel/mm"
)

var (
	// flushTLBEntryFn is the default TLB invalidation routine. Executing
	// it outside ring 0 causes a fault so hosted callers supply their own.
	flushTLBEntryFn = cpu.FlushTLBEntry

	// activePDTFn is used by tests to override calls to activePDT which
	// will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT

	logger = klog.Logger("vmm")
)

// PageDirectoryTable describes the top-most table in a multi-level paging scheme.
type PageDirectoryTable struct {
	frame mm.Frame
}

// NewPageDirectoryTable wraps the root table stored at the supplied physical
// address.
func NewPageDirectoryTable(root mm.AlignedAddress[mm.Physical]) PageDirectoryTable {
	return PageDirectoryTable{frame: mm.FrameFromAddress(root.Address())}
}

// ActivePageDirectoryTable returns the root table currently loaded in CR3.
func ActivePageDirectoryTable() PageDirectoryTable {
	return PageDirectoryTable{frame: mm.Frame((uint64(activePDTFn()) & ptePhysPageMask) >> mm.PageShift)}
}

// Address returns the physical address of the root table.
func (pdt PageDirectoryTable) Address() mm.AlignedAddress[mm.Physical] {
	return pdt.frame.Address()
}

// Manager edits page tables reachable through the direct map. New tables
// are allocated from the frame allocator the Manager was created with.
type Manager struct {
	frames        mm.FrameAllocator
	dmap          mm.DirectMap
	flushTLBEntry func(virtAddr uintptr)
}

// NewManager creates a Manager. If flushTLBEntry is nil the INVLPG based
// default is used.
func NewManager(frames mm.FrameAllocator, dmap mm.DirectMap, flushTLBEntry func(uintptr)) *Manager {
	if flushTLBEntry == nil {
		flushTLBEntry = flushTLBEntryFn
	}

	return &Manager{
		frames:        frames,
		dmap:          dmap,
		flushTLBEntry: flushTLBEntry,
	}
}

// Map establishes a mapping between a virtual page and a physical memory
// frame in the address space rooted at root. Missing intermediate tables are
// allocated from the frame allocator and cleared. The leaf entry is always
// installed with FlagPresent and FlagRW in addition to the supplied flags.
//
// Map fails with ErrCannotMapToHugePage if the path to the page goes through
// a huge page mapping. Errors returned by the frame allocator are passed
// through unchanged.
func (m *Manager) Map(root PageDirectoryTable, phys mm.AlignedAddress[mm.Physical], virt mm.AlignedAddress[mm.Virtual], flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error

	m.walk(root, virt.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flag it as present and flush its TLB entry
		if pteLevel == levelPT {
			*pte = 0
			pte.SetFrame(mm.FrameFromAddress(phys.Address()))
			pte.SetFlags(FlagPresent | FlagRW | flags)
			m.flushTLBEntry(virt.Uintptr())
			return true
		}

		if pte.HasFlags(FlagPresent | FlagHugePage) {
			err = ErrCannotMapToHugePage
			return false
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		if !pte.HasFlags(FlagPresent) {
			var tableAddr mm.AlignedAddress[mm.Physical]
			if tableAddr, err = m.frames.Allocate(mm.PageLayout(1)); err != nil {
				return false
			}

			kernel.Memset(m.dmap.Virt(tableAddr.Address()), 0, mm.PageSize)

			*pte = 0
			pte.SetFrame(mm.FrameFromAddress(tableAddr.Address()))
			pte.SetFlags(FlagPresent | FlagRW)
			logger.Debug("allocated page table", "level", pteLevel+1, "table", tableAddr, "virt", virt)
		}

		return true
	})

	return err
}

// Unmap removes the mapping for a virtual page. If the page is part of a
// huge page the entire huge page mapping is removed. Tables that become
// empty are not returned to the frame allocator.
func (m *Manager) Unmap(root PageDirectoryTable, virt mm.AlignedAddress[mm.Virtual]) *kernel.Error {
	var err *kernel.Error

	m.walk(root, virt.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// Next table is not present; this is an invalid mapping
		if !pte.HasFlags(FlagPresent) {
			err = ErrAddressUnmapped
			return false
		}

		if pteLevel == levelPT || pte.HasFlags(FlagHugePage) {
			*pte = 0
			m.flushTLBEntry(virt.Uintptr())
			return false
		}

		return true
	})

	return err
}

// VirtualToPhysical returns the physical address that corresponds to the
// supplied virtual address. The second return value is false if the address
// is not mapped.
func (m *Manager) VirtualToPhysical(root PageDirectoryTable, virt mm.Address[mm.Virtual]) (mm.Address[mm.Physical], bool) {
	var (
		physAddr uint64
		mapped   bool
	)

	m.walk(root, virt, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		switch {
		case pteLevel == levelPDPT && pte.HasFlags(FlagHugePage):
			physAddr, mapped = pte.hugePageBase(pteLevel)+virt.HugeOffset1G(), true
			return false
		case pteLevel == levelPD && pte.HasFlags(FlagHugePage):
			physAddr, mapped = pte.hugePageBase(pteLevel)+virt.HugeOffset2M(), true
			return false
		case pteLevel == levelPT:
			physAddr, mapped = pte.Frame().Address().Raw()+virt.PageOffset(), true
		}

		return true
	})

	if !mapped {
		return mm.Address[mm.Physical]{}, false
	}

	addr, _ := mm.NewAddress[mm.Physical](physAddr)
	return addr, true
}
