package mm

import "lotusos/kernel"

// FrameAllocator hands out runs of physical page frames.
type FrameAllocator interface {
	// Allocate reserves enough contiguous frames to hold layout.Size bytes
	// at an address that is a multiple of layout.Align.
	Allocate(layout Layout) (AlignedAddress[Physical], *kernel.Error)

	// Deallocate releases frames previously returned by Allocate for the
	// same layout.
	Deallocate(addr AlignedAddress[Physical], layout Layout) *kernel.Error
}

// GlobalAllocator is the contract of the kernel-wide dynamic allocator. It
// cannot report structured errors: Alloc returns 0 on failure.
type GlobalAllocator interface {
	Alloc(layout Layout) uintptr
	Dealloc(ptr uintptr, layout Layout)
}

// globalAllocator points to the allocator registered using
// SetGlobalAllocator.
var globalAllocator GlobalAllocator

// SetGlobalAllocator registers the allocator that serves Malloc and Free.
func SetGlobalAllocator(alloc GlobalAllocator) { globalAllocator = alloc }

// Malloc allocates memory for layout using the registered global allocator.
// It returns 0 if the request cannot be satisfied or no allocator has been
// registered yet.
func Malloc(layout Layout) uintptr {
	if globalAllocator == nil || !layout.Valid() {
		return 0
	}
	return globalAllocator.Alloc(layout)
}

// Free releases memory obtained from Malloc with the same layout.
func Free(ptr uintptr, layout Layout) {
	if globalAllocator == nil || ptr == 0 {
		return
	}
	globalAllocator.Dealloc(ptr, layout)
}
