package mm

import "lotusos/kernel"

var (
	// ErrAddressNotAligned is returned when a page-aligned address is
	// required but the input is not a multiple of PageSize.
	ErrAddressNotAligned = &kernel.Error{Module: "mm", Message: "address is not page aligned"}

	// ErrAddressNonCanonical is returned for virtual addresses whose bits
	// above the implemented width are not a sign extension.
	ErrAddressNonCanonical = &kernel.Error{Module: "mm", Message: "virtual address is not canonical"}

	// ErrAddressConversion is returned when a value cannot be represented
	// as an address (e.g. out of range page table indices or overflow).
	ErrAddressConversion = &kernel.Error{Module: "mm", Message: "address conversion failed"}

	// ErrOutOfMemory is returned when every frame or byte managed by an
	// allocator is in use.
	ErrOutOfMemory = &kernel.Error{Module: "mm", Message: "out of memory"}

	// ErrNotEnoughMemory is returned when the allocator has free memory but
	// less than the request needs.
	ErrNotEnoughMemory = &kernel.Error{Module: "mm", Message: "not enough free memory for request"}

	// ErrRequestUnfulfillable is returned when enough memory is free in
	// aggregate but no contiguous run satisfies the size and alignment.
	ErrRequestUnfulfillable = &kernel.Error{Module: "mm", Message: "no free region satisfies the request"}

	// ErrDoubleFree is returned when releasing memory that is not
	// currently allocated.
	ErrDoubleFree = &kernel.Error{Module: "mm", Message: "double free"}

	// ErrRegionTooSmall is returned when no memory region is large enough
	// to hold an allocator's own bookkeeping.
	ErrRegionTooSmall = &kernel.Error{Module: "mm", Message: "no region large enough for allocator metadata"}

	// ErrInternalStorageFull is returned when an allocator cannot grow the
	// storage that tracks its free regions.
	ErrInternalStorageFull = &kernel.Error{Module: "mm", Message: "allocator internal storage is full"}

	// ErrInvalidLayout is returned for zero sizes or alignments that are
	// not a power of two.
	ErrInvalidLayout = &kernel.Error{Module: "mm", Message: "invalid allocation layout"}

	// ErrInvalidAddress is returned when releasing memory outside the range
	// managed by an allocator.
	ErrInvalidAddress = &kernel.Error{Module: "mm", Message: "address outside managed range"}

	// ErrUninitialized is returned by allocators used before Init.
	ErrUninitialized = &kernel.Error{Module: "mm", Message: "allocator not initialized"}
)
