// Package heap implements the kernel's general purpose allocator. Free
// memory is tracked as a sorted set of FreeRegion records; allocations are
// served first-fit and released memory is merged with its neighbors.
package heap

import (
	"strconv"

	"lotusos/kernel"
	"lotusos/kernel/klog"
	"lotusos/kernel/mm"
	"lotusos/kernel/sync"
)

var (
	logger = klog.Logger("heap")

	// ErrAlreadyInitialized is returned by Init when called more than once.
	ErrAlreadyInitialized = &kernel.Error{Module: "heap", Message: "heap already initialized"}
)

// GrowFn supplies additional backing memory when no free region can serve
// a request. It must return a range of at least minSize bytes that does not
// overlap memory already handed to the heap.
type GrowFn func(minSize uint64) (start uintptr, size uint64, err *kernel.Error)

// Stats summarizes the state of the heap.
type Stats struct {
	// FreeBytes is the sum of the sizes of all free regions.
	FreeBytes uint64

	// Regions is the number of free regions.
	Regions int

	// StorageCapacity is the number of region records the current storage
	// extent can hold.
	StorageCapacity int
}

// Allocator is a free-region heap. Its bookkeeping is stored in frames
// obtained from a frame allocator so it never allocates from itself.
//
// Besides the free regions the heap records every extent handed to it by
// Init or Extend; Free only accepts ranges inside one of them.
//
// Allocator implements mm.GlobalAllocator.
type Allocator struct {
	lock sync.IRQSpinlock

	regions     regionStorage
	extents     regionStorage
	grow        GrowFn
	initialized bool
}

// NewAllocator creates an uninitialized heap whose region storage will be
// allocated from frames and accessed through dmap.
func NewAllocator(frames mm.FrameAllocator, dmap mm.DirectMap) *Allocator {
	return &Allocator{
		regions: regionStorage{frames: frames, dmap: dmap},
		extents: regionStorage{frames: frames, dmap: dmap},
	}
}

// Init reserves the region storage and registers [start, start+size) as the
// initial free region.
func (h *Allocator) Init(start uintptr, size uint64) *kernel.Error {
	if size == 0 || start+uintptr(size) < start {
		return mm.ErrRegionTooSmall
	}

	h.lock.Acquire()
	defer h.lock.Release()

	if h.initialized {
		return ErrAlreadyInitialized
	}

	if err := h.extents.init(); err != nil {
		return err
	}

	if err := h.regions.init(); err != nil {
		h.extents.release()
		return err
	}

	extent := FreeRegion{Start: start, Size: uintptr(size)}
	if err := h.extents.insert(extent); err != nil {
		return err
	}
	if err := h.regions.insert(extent); err != nil {
		return err
	}

	h.initialized = true
	logger.Info("heap initialized", "start", hex(start), "size", mm.Size(size), "storage_capacity", h.regions.capacity())
	return nil
}

// SetGrowFn registers the function that is consulted when a request cannot
// be served from the existing regions.
func (h *Allocator) SetGrowFn(fn GrowFn) {
	h.lock.Acquire()
	h.grow = fn
	h.lock.Release()
}

// roundLayout adjusts a layout so that any allocation can later be described
// by a FreeRegion record: sizes are a multiple of the record size and
// alignments at least the record alignment. It returns false if the rounded
// size does not fit in an address.
func roundLayout(layout mm.Layout) (size, align uintptr, ok bool) {
	size = uintptr(mm.AlignUp(layout.Size, uint64(regionRecordSize)))
	if size < uintptr(layout.Size) || size == 0 {
		return 0, 0, false
	}

	align = uintptr(layout.Align)
	if align < regionRecordAlign {
		align = regionRecordAlign
	}
	return size, align, true
}

// Allocate reserves memory for layout and returns its address.
//
// The lowest free region that can hold the request at the requested
// alignment is used. Bytes before and after the allocation stay free. If no
// region fits and a GrowFn is set, the heap is extended and the search is
// retried once.
func (h *Allocator) Allocate(layout mm.Layout) (uintptr, *kernel.Error) {
	size, align, ok := roundLayout(layout)
	if !layout.Valid() || !ok {
		return 0, mm.ErrInvalidLayout
	}

	h.lock.Acquire()
	defer h.lock.Release()

	if !h.initialized {
		return 0, mm.ErrUninitialized
	}

	ptr, err := h.allocate(size, align)
	if err != mm.ErrOutOfMemory || h.grow == nil || size+align < size {
		return ptr, err
	}

	// Ask for enough memory to satisfy the request even if the new range
	// is not suitably aligned.
	start, extSize, err := h.grow(uint64(size + align))
	if err != nil {
		logger.Warn("unable to grow heap", "size", mm.Size(size), "err", err)
		return 0, err
	}

	if err = h.extend(start, extSize); err != nil {
		return 0, err
	}

	logger.Debug("heap grown", "start", hex(start), "size", mm.Size(extSize))
	return h.allocate(size, align)
}

// allocate performs a first-fit search. The lock must be held.
func (h *Allocator) allocate(size, align uintptr) (uintptr, *kernel.Error) {
	if size == 0 {
		return 0, mm.ErrInvalidLayout
	}

	for index := 0; index < h.regions.len(); index++ {
		region := *h.regions.at(index)

		allocStart := mm.AlignUp(region.Start, align)
		allocEnd := allocStart + size
		if allocStart < region.Start || allocEnd < allocStart || allocEnd > region.End() {
			continue
		}

		var (
			gap  = allocStart - region.Start
			tail = region.End() - allocEnd
		)

		switch {
		case gap != 0 && tail != 0:
			// The tail needs a new record; insert it before touching the
			// region so a storage failure leaves the heap unchanged.
			if err := h.regions.insert(FreeRegion{Start: allocEnd, Size: tail}); err != nil {
				return 0, err
			}
			h.regions.at(index).Size = gap
		case gap != 0:
			h.regions.at(index).Size = gap
		case tail != 0:
			*h.regions.at(index) = FreeRegion{Start: allocEnd, Size: tail}
		default:
			h.regions.remove(index)
		}

		return allocStart, nil
	}

	return 0, mm.ErrOutOfMemory
}

// Alloc implements mm.GlobalAllocator. It returns 0 if the request cannot
// be satisfied.
func (h *Allocator) Alloc(layout mm.Layout) uintptr {
	ptr, err := h.Allocate(layout)
	if err != nil {
		return 0
	}
	return ptr
}

// AllocZeroed behaves like Alloc but clears the returned memory.
func (h *Allocator) AllocZeroed(layout mm.Layout) uintptr {
	ptr := h.Alloc(layout)
	if ptr != 0 {
		kernel.Memset(ptr, 0, uintptr(layout.Size))
	}
	return ptr
}

// Free returns the memory at ptr, previously obtained for layout, to the
// heap and merges adjacent free regions. Ranges outside the memory handed
// to the heap fail with mm.ErrInvalidAddress. If any part of the range is
// already free the call fails with mm.ErrDoubleFree and nothing changes.
func (h *Allocator) Free(ptr uintptr, layout mm.Layout) *kernel.Error {
	size, _, ok := roundLayout(layout)
	if !layout.Valid() || !ok {
		return mm.ErrInvalidLayout
	}

	if ptr == 0 || ptr+size < ptr {
		return mm.ErrInvalidAddress
	}

	h.lock.Acquire()
	defer h.lock.Release()

	if !h.initialized {
		return mm.ErrUninitialized
	}

	region := FreeRegion{Start: ptr, Size: size}
	if !h.extents.contains(region) {
		return mm.ErrInvalidAddress
	}
	if h.regions.overlapping(region) {
		return mm.ErrDoubleFree
	}

	if err := h.regions.insert(region); err != nil {
		return err
	}

	h.regions.coalesce()
	return nil
}

// Dealloc implements mm.GlobalAllocator. Errors are logged and otherwise
// ignored.
func (h *Allocator) Dealloc(ptr uintptr, layout mm.Layout) {
	if err := h.Free(ptr, layout); err != nil {
		logger.Error("dealloc failed", "ptr", hex(ptr), "size", mm.Size(layout.Size), "err", err)
	}
}

// Extend hands [start, start+size) to the heap. The range must not overlap
// memory the heap already manages.
func (h *Allocator) Extend(start uintptr, size uint64) *kernel.Error {
	h.lock.Acquire()
	defer h.lock.Release()

	if !h.initialized {
		return mm.ErrUninitialized
	}

	return h.extend(start, size)
}

// extend adds a region and merges it with its neighbors. The lock must be
// held.
func (h *Allocator) extend(start uintptr, size uint64) *kernel.Error {
	region := FreeRegion{Start: start, Size: uintptr(size)}
	if size == 0 || region.End() < start || h.extents.overlapping(region) {
		return mm.ErrInvalidAddress
	}

	if err := h.extents.insert(region); err != nil {
		return err
	}

	if err := h.regions.insert(region); err != nil {
		h.extents.remove(h.extents.search(start))
		return err
	}

	h.extents.coalesce()
	h.regions.coalesce()
	return nil
}

// Stats returns a snapshot of the heap state.
func (h *Allocator) Stats() Stats {
	h.lock.Acquire()
	defer h.lock.Release()

	stats := Stats{
		Regions:         h.regions.len(),
		StorageCapacity: h.regions.capacity(),
	}
	for index := 0; index < h.regions.len(); index++ {
		stats.FreeBytes += uint64(h.regions.at(index).Size)
	}
	return stats
}

// Regions returns a copy of the free regions in ascending address order.
func (h *Allocator) Regions() []FreeRegion {
	h.lock.Acquire()
	defer h.lock.Release()

	return append([]FreeRegion(nil), h.regions.regions...)
}

func hex(v uintptr) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}
