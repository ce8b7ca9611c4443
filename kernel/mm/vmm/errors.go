package vmm

import "lotusos/kernel"

var (
	// ErrAddressUnmapped is returned when a page table walk reaches an entry
	// that is not present.
	ErrAddressUnmapped = &kernel.Error{Module: "vmm", Message: "virtual address is not mapped"}

	// ErrCannotMapToHugePage is returned when a walk needs to descend below
	// an entry that maps a huge page.
	ErrCannotMapToHugePage = &kernel.Error{Module: "vmm", Message: "cannot map below a huge page"}

	// ErrAddressMapped is returned when a page that must be free already
	// has a mapping.
	ErrAddressMapped = &kernel.Error{Module: "vmm", Message: "virtual address is already mapped"}

	// ErrVirtualMemoryExhausted is returned when no free run of pages of the
	// requested size exists in the searched range.
	ErrVirtualMemoryExhausted = &kernel.Error{Module: "vmm", Message: "virtual memory exhausted"}
)
