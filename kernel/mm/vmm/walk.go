package vmm

import (
	"unsafe"

	"lotusos/kernel/mm"
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments. If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the root table. It calls the supplied walkFn with the page table entry that
// corresponds to each page table level. Tables are accessed through the
// direct map. The entry pointer for the next level is only computed after
// walkFn returns so walkFn may install a missing table.
func (m *Manager) walk(root PageDirectoryTable, virtAddr mm.Address[mm.Virtual], walkFn pageTableWalker) {
	tableAddr := root.frame.Address()

	for level := uint8(0); level < pageLevels; level++ {
		entryAddr := m.dmap.Virt(tableAddr.Address()) + uintptr(mm.TableIndex(virtAddr, level))<<mm.PointerShift
		pte := (*pageTableEntry)(unsafe.Pointer(entryAddr))

		if !walkFn(level, pte) {
			return
		}

		tableAddr = pte.Frame().Address()
	}
}

// levelSpan returns the number of bytes of virtual address space covered by
// a single entry of a table at the supplied level.
func levelSpan(level uint8) uint64 {
	return 1 << pageLevelShifts[level]
}
