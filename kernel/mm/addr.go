package mm

import (
	"strconv"

	"lotusos/kernel"
)

// Space is the constraint satisfied by the address space markers. Tagging an
// Address with its space turns a physical/virtual mix-up into a compile-time
// error.
type Space interface {
	Physical | Virtual

	// requiresCanonical reports whether addresses in this space must be
	// in canonical form.
	requiresCanonical() bool
	prefix() string
}

// Physical marks addresses in the physical address space.
type Physical struct{}

func (Physical) requiresCanonical() bool { return false }
func (Physical) prefix() string          { return "phys:" }

// Virtual marks addresses in the kernel's virtual address space.
type Virtual struct{}

func (Virtual) requiresCanonical() bool { return true }
func (Virtual) prefix() string          { return "virt:" }

// canonicalMask selects the bits that must all be equal in a canonical
// virtual address.
const canonicalMask = ^uint64(0) >> (VirtualAddressWidth - 1) << (VirtualAddressWidth - 1)

// Address is a 64-bit address in the space S. The zero value is address 0
// which is valid in both spaces.
type Address[S Space] struct {
	raw uint64
}

// NewAddress validates raw and returns it as an address in space S. Virtual
// addresses must be canonical.
func NewAddress[S Space](raw uint64) (Address[S], *kernel.Error) {
	var space S
	if space.requiresCanonical() && !IsCanonical(raw) {
		return Address[S]{}, ErrAddressNonCanonical
	}
	return Address[S]{raw: raw}, nil
}

// IsCanonical returns true if the bits of raw above the implemented virtual
// address width are a sign extension of bit VirtualAddressWidth-1.
func IsCanonical(raw uint64) bool {
	high := raw & canonicalMask
	return high == 0 || high == canonicalMask
}

// Raw returns the address value.
func (a Address[S]) Raw() uint64 { return a.raw }

// Uintptr returns the address as a uintptr.
func (a Address[S]) Uintptr() uintptr { return uintptr(a.raw) }

// IsAligned returns true if the address is a multiple of PageSize.
func (a Address[S]) IsAligned() bool { return IsAligned(a.raw, PageSize) }

// AlignLossy truncates the address to the start of the page containing it.
// Truncation preserves canonical form so it never fails.
func (a Address[S]) AlignLossy() AlignedAddress[S] {
	return AlignedAddress[S]{addr: Address[S]{raw: AlignDown(a.raw, PageSize)}}
}

// TryAlign converts the address into an AlignedAddress, failing with
// ErrAddressNotAligned if it is not a multiple of PageSize.
func (a Address[S]) TryAlign() (AlignedAddress[S], *kernel.Error) {
	if !a.IsAligned() {
		return AlignedAddress[S]{}, ErrAddressNotAligned
	}
	return AlignedAddress[S]{addr: a}, nil
}

// Add returns the address delta bytes past a. The result is validated like
// any other address; overflowing the 64-bit space yields
// ErrAddressConversion.
func (a Address[S]) Add(delta uint64) (Address[S], *kernel.Error) {
	if a.raw+delta < a.raw {
		return Address[S]{}, ErrAddressConversion
	}
	return NewAddress[S](a.raw + delta)
}

// PageOffset returns bits 0-11: the offset within a 4 KiB page.
func (a Address[S]) PageOffset() uint64 { return a.raw & (PageSize - 1) }

// HugeOffset2M returns bits 0-20: the offset within a 2 MiB page.
func (a Address[S]) HugeOffset2M() uint64 { return a.raw & (HugePageSize2M - 1) }

// HugeOffset1G returns bits 0-29: the offset within a 1 GiB page.
func (a Address[S]) HugeOffset1G() uint64 { return a.raw & (HugePageSize1G - 1) }

// String implements fmt.Stringer.
func (a Address[S]) String() string {
	var space S
	return space.prefix() + "0x" + strconv.FormatUint(a.raw, 16)
}

// AlignedAddress is an Address that is a multiple of PageSize.
type AlignedAddress[S Space] struct {
	addr Address[S]
}

// NewAlignedAddress validates raw as an address in space S that is also page
// aligned.
func NewAlignedAddress[S Space](raw uint64) (AlignedAddress[S], *kernel.Error) {
	addr, err := NewAddress[S](raw)
	if err != nil {
		return AlignedAddress[S]{}, err
	}
	return addr.TryAlign()
}

// Address returns the underlying address.
func (a AlignedAddress[S]) Address() Address[S] { return a.addr }

// Raw returns the address value.
func (a AlignedAddress[S]) Raw() uint64 { return a.addr.raw }

// Uintptr returns the address as a uintptr.
func (a AlignedAddress[S]) Uintptr() uintptr { return uintptr(a.addr.raw) }

// AddPages returns the aligned address count pages past a.
func (a AlignedAddress[S]) AddPages(count uint64) (AlignedAddress[S], *kernel.Error) {
	if count > (^uint64(0))>>PageShift {
		return AlignedAddress[S]{}, ErrAddressConversion
	}
	addr, err := a.addr.Add(count << PageShift)
	if err != nil {
		return AlignedAddress[S]{}, err
	}
	return AlignedAddress[S]{addr: addr}, nil
}

// String implements fmt.Stringer.
func (a AlignedAddress[S]) String() string { return a.addr.String() }

// TableIndex returns the 9-bit index into the page table at the supplied
// level (0 for the PML4, 3 for the PT) selected by a virtual address.
func TableIndex(a Address[Virtual], level uint8) uint16 {
	shift := PageShift + 9*(3-uint64(level))
	return uint16((a.raw >> shift) & (PageTableEntries - 1))
}

// P4Index returns bits 39-47 of a virtual address.
func P4Index(a Address[Virtual]) uint16 { return TableIndex(a, 0) }

// P3Index returns bits 30-38 of a virtual address.
func P3Index(a Address[Virtual]) uint16 { return TableIndex(a, 1) }

// P2Index returns bits 21-29 of a virtual address.
func P2Index(a Address[Virtual]) uint16 { return TableIndex(a, 2) }

// P1Index returns bits 12-20 of a virtual address.
func P1Index(a Address[Virtual]) uint16 { return TableIndex(a, 3) }

// VirtualFromIndices assembles a canonical virtual address from its page
// table indices and page offset. Bit 47 is sign-extended into the upper
// bits.
func VirtualFromIndices(p4, p3, p2, p1 uint16, offset uint64) (Address[Virtual], *kernel.Error) {
	if p4 >= PageTableEntries || p3 >= PageTableEntries || p2 >= PageTableEntries || p1 >= PageTableEntries || offset >= PageSize {
		return Address[Virtual]{}, ErrAddressConversion
	}

	raw := uint64(p4)<<39 | uint64(p3)<<30 | uint64(p2)<<21 | uint64(p1)<<12 | offset
	if raw&(1<<(VirtualAddressWidth-1)) != 0 {
		raw |= canonicalMask
	}
	return Address[Virtual]{raw: raw}, nil
}
