package mm

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). The pointer
	// size for this architecture is defined as (1 << PointerShift).
	PointerShift = 3

	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = 1 << PageShift

	// HugePageSize2M is the size of a page mapped by a PD leaf entry.
	HugePageSize2M = 1 << 21

	// HugePageSize1G is the size of a page mapped by a PDPT leaf entry.
	HugePageSize1G = 1 << 30

	// VirtualAddressWidth is the number of implemented virtual address
	// bits with 4-level paging. Bits above it must be copies of bit
	// VirtualAddressWidth-1.
	VirtualAddressWidth = 48

	// PageTableEntries is the number of entries in each page table.
	PageTableEntries = 512
)
