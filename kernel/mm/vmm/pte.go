package vmm

import "lotusos/kernel/mm"

// PageTableEntryFlag is a bit of a page table entry.
type PageTableEntryFlag uint64

// pageTableEntry is a single slot of a paging structure: a frame address in
// bits 12-51 plus flag bits.
type pageTableEntry uint64

// HasFlags reports whether every bit in flags is set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint64(pte) & uint64(flags)) == uint64(flags)
}

// HasAnyFlag reports whether at least one bit in flags is set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uint64(pte) & uint64(flags)) != 0
}

// SetFlags ORs flags into the entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint64(*pte) | uint64(flags))
}

// ClearFlags clears flags from the entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint64(*pte) &^ uint64(flags))
}

// Frame returns the frame referenced by the entry.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame((uint64(pte) & ptePhysPageMask) >> mm.PageShift)
}

// SetFrame replaces the referenced frame, leaving the flags untouched.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uint64(*pte) &^ ptePhysPageMask) | (frame.Address().Raw() & ptePhysPageMask))
}

// hugePageBase returns the physical base of the huge page mapped by a leaf
// entry at the supplied level. Bits below the huge page size (including
// the PAT bit at position 12) are not part of the address.
func (pte pageTableEntry) hugePageBase(level uint8) uint64 {
	return uint64(pte) & ptePhysPageMask &^ (1<<pageLevelShifts[level] - 1)
}
