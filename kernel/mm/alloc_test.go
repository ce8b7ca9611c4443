package mm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type recordingAllocator struct {
	allocs, deallocs []Layout
	ret              uintptr
}

func (a *recordingAllocator) Alloc(layout Layout) uintptr {
	a.allocs = append(a.allocs, layout)
	return a.ret
}

func (a *recordingAllocator) Dealloc(_ uintptr, layout Layout) {
	a.deallocs = append(a.deallocs, layout)
}

func TestGlobalAllocator(t *testing.T) {
	defer SetGlobalAllocator(nil)

	layout := Layout{Size: 64, Align: 8}

	// No allocator registered
	require.Equal(t, uintptr(0), Malloc(layout))
	Free(0x1000, layout)

	alloc := &recordingAllocator{ret: 0xbadf00}
	SetGlobalAllocator(alloc)

	require.Equal(t, uintptr(0xbadf00), Malloc(layout))
	require.Equal(t, uintptr(0), Malloc(Layout{Size: 0, Align: 8}), "invalid layouts never reach the allocator")
	Free(0xbadf00, layout)
	Free(0, layout)

	require.Equal(t, []Layout{layout}, alloc.allocs)
	require.Equal(t, []Layout{layout}, alloc.deallocs)
}

func TestDirectMap(t *testing.T) {
	var buf [PageSize]byte
	base := uintptr(unsafe.Pointer(&buf[0]))

	dm := DirectMap{Offset: base - 0x5000}
	phys, _ := NewAddress[Physical](0x5010)

	require.Equal(t, base+0x10, dm.Virt(phys))
	require.Equal(t, unsafe.Pointer(&buf[0x10]), dm.Ptr(phys))
	require.Equal(t, phys, dm.Phys(base+0x10))
}
