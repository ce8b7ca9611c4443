package mm

import "unsafe"

// DirectMap describes a window of the virtual address space through which
// all physical memory is accessible: physical address p is visible at
// virtual address Offset+p. The kernel uses it to read and edit page tables
// and allocator metadata that live in physical frames.
type DirectMap struct {
	Offset uintptr
}

// Virt returns the virtual address through which addr can be accessed.
func (m DirectMap) Virt(addr Address[Physical]) uintptr {
	return m.Offset + addr.Uintptr()
}

// Ptr returns a pointer to the memory at the physical address addr.
func (m DirectMap) Ptr(addr Address[Physical]) unsafe.Pointer {
	return unsafe.Pointer(m.Virt(addr))
}

// Phys is the inverse of Virt. It returns the physical address that is
// visible at the direct-mapped virtual address virt.
func (m DirectMap) Phys(virt uintptr) Address[Physical] {
	return Address[Physical]{raw: uint64(virt - m.Offset)}
}
