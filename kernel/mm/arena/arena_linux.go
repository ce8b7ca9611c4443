//go:build linux

// Package arena provides a block of anonymous host memory that stands in for
// physical RAM when the memory subsystem runs as an ordinary process. The
// allocators reach it through an mm.DirectMap exactly like they reach real
// RAM through the kernel's physical memory window.
package arena

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"lotusos/kernel/mm"
)

// Arena is an anonymous, page-aligned memory mapping of a fixed size.
type Arena struct {
	mem []byte
}

// New maps size bytes of zeroed memory. Size is rounded up to a whole number
// of pages.
func New(size mm.Size) (*Arena, error) {
	length := int(size.Pages() << mm.PageShift)
	if length == 0 {
		return nil, errors.New("arena: size must be non-zero")
	}

	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "arena: mmap %d bytes", length)
	}

	return &Arena{mem: mem}, nil
}

// Base returns the host address of the first byte of the arena.
func (a *Arena) Base() uintptr {
	if len(a.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.mem[0]))
}

// Size returns the arena length in bytes.
func (a *Arena) Size() mm.Size {
	return mm.Size(len(a.mem))
}

// DirectMap returns a direct map under which the arena holds the physical
// range [physBase, physBase+Size).
func (a *Arena) DirectMap(physBase uint64) mm.DirectMap {
	return mm.DirectMap{Offset: a.Base() - uintptr(physBase)}
}

// Bytes returns the arena contents.
func (a *Arena) Bytes() []byte {
	return a.mem
}

// Reset discards the arena contents. Subsequent reads observe zeroes.
func (a *Arena) Reset() error {
	return errors.Wrap(unix.Madvise(a.mem, unix.MADV_DONTNEED), "arena: madvise")
}

// Close unmaps the arena. Calling Close more than once is a no-op.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}

	err := unix.Munmap(a.mem)
	a.mem = nil
	return errors.Wrap(err, "arena: munmap")
}
