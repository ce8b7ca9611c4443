package vmm

import (
	"lotusos/kernel"
	"lotusos/kernel/mm"
)

// FindFreeMappingArea searches [start, end) for the lowest run of unmapped
// pages that can hold size bytes. Regions covered by absent intermediate
// tables are skipped in one step.
func (m *Manager) FindFreeMappingArea(root PageDirectoryTable, start, end mm.AlignedAddress[mm.Virtual], size uint64) (mm.AlignedAddress[mm.Virtual], *kernel.Error) {
	if size == 0 {
		return mm.AlignedAddress[mm.Virtual]{}, mm.ErrInvalidLayout
	}

	var (
		needed   = mm.AlignUp(size, mm.PageSize)
		endRaw   = end.Raw()
		runStart = start.Raw()
		cur      = runStart
	)

	for cur < endRaw && cur-runStart < needed {
		addr, err := mm.NewAddress[mm.Virtual](cur)
		if err != nil {
			// Skip the non-canonical hole
			cur = ^uint64(0) >> (mm.VirtualAddressWidth - 1) << (mm.VirtualAddressWidth - 1)
			runStart = cur
			continue
		}

		mapped, span := m.probe(root, addr)
		if next := cur + span; next < cur || next > endRaw {
			cur = endRaw
		} else {
			cur = next
		}

		if mapped {
			runStart = cur
		}
	}

	if cur-runStart < needed {
		return mm.AlignedAddress[mm.Virtual]{}, ErrVirtualMemoryExhausted
	}

	return mm.NewAlignedAddress[mm.Virtual](runStart)
}

// probe reports whether addr is mapped and returns the distance to the next
// address whose mapping state may differ: the remainder of the huge page or
// of the region covered by an absent table, or one page.
func (m *Manager) probe(root PageDirectoryTable, addr mm.Address[mm.Virtual]) (bool, uint64) {
	var (
		mapped bool
		span   = uint64(mm.PageSize)
	)

	m.walk(root, addr, func(pteLevel uint8, pte *pageTableEntry) bool {
		levelSize := levelSpan(pteLevel)
		switch {
		case !pte.HasFlags(FlagPresent):
			span = levelSize - addr.Raw()&(levelSize-1)
			return false
		case pteLevel == levelPT || pte.HasFlags(FlagHugePage):
			mapped = true
			span = levelSize - addr.Raw()&(levelSize-1)
			return false
		}
		return true
	})

	return mapped, span
}

// AllocateAndMap backs the size bytes starting at virt with newly allocated
// frames. Every page in the range must be unmapped. On failure all pages
// mapped by the call are unmapped and their frames released.
func (m *Manager) AllocateAndMap(root PageDirectoryTable, virt mm.AlignedAddress[mm.Virtual], size uint64, flags MemoryFlags) *kernel.Error {
	pageCount := mm.Size(size).Pages()

	for page := uint64(0); page < pageCount; page++ {
		pageAddr, err := virt.AddPages(page)
		if err != nil {
			m.rollback(root, virt, page)
			return err
		}

		if _, mapped := m.VirtualToPhysical(root, pageAddr.Address()); mapped {
			m.rollback(root, virt, page)
			return ErrAddressMapped
		}

		frame, err := m.frames.Allocate(mm.PageLayout(1))
		if err != nil {
			m.rollback(root, virt, page)
			return err
		}

		if err = m.Map(root, frame, pageAddr, flags.ToPTEFlags()); err != nil {
			_ = m.frames.Deallocate(frame, mm.PageLayout(1))
			m.rollback(root, virt, page)
			return err
		}
	}

	return nil
}

// rollback undoes the first count pages mapped by AllocateAndMap.
func (m *Manager) rollback(root PageDirectoryTable, virt mm.AlignedAddress[mm.Virtual], count uint64) {
	if count != 0 {
		_ = m.DeallocateAndUnmap(root, virt, count<<mm.PageShift)
	}
}

// DeallocateAndUnmap removes the mappings for the size bytes starting at
// virt and returns the backing frames to the frame allocator. Every page in
// the range must be mapped with a 4K mapping.
func (m *Manager) DeallocateAndUnmap(root PageDirectoryTable, virt mm.AlignedAddress[mm.Virtual], size uint64) *kernel.Error {
	pageCount := mm.Size(size).Pages()

	for page := uint64(0); page < pageCount; page++ {
		pageAddr, err := virt.AddPages(page)
		if err != nil {
			return err
		}

		phys, mapped := m.VirtualToPhysical(root, pageAddr.Address())
		if !mapped {
			return ErrAddressUnmapped
		}

		if err = m.Unmap(root, pageAddr); err != nil {
			return err
		}

		if err = m.frames.Deallocate(phys.AlignLossy(), mm.PageLayout(1)); err != nil {
			return err
		}
	}

	return nil
}
