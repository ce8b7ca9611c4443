package mm

import "math"

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte in this frame.
func (f Frame) Address() AlignedAddress[Physical] {
	return AlignedAddress[Physical]{addr: Address[Physical]{raw: uint64(f) << PageShift}}
}

// FrameFromAddress returns the Frame that contains the supplied physical
// address.
func FrameFromAddress(addr Address[Physical]) Frame {
	return Frame(addr.raw >> PageShift)
}

// Page describes a virtual memory page index.
type Page uint64

// Address returns the virtual address of the first byte in this page. Page
// numbers are formed from the low 48 bits so the sign extension is
// restored here.
func (p Page) Address() AlignedAddress[Virtual] {
	raw := uint64(p) << PageShift
	if raw&(1<<(VirtualAddressWidth-1)) != 0 {
		raw |= canonicalMask
	}
	return AlignedAddress[Virtual]{addr: Address[Virtual]{raw: raw}}
}

// PageFromAddress returns the Page that contains the supplied virtual
// address.
func PageFromAddress(addr Address[Virtual]) Page {
	return Page((addr.raw & (1<<VirtualAddressWidth - 1)) >> PageShift)
}
