package pmm

import (
	"unsafe"

	"lotusos/kernel"
	"lotusos/kernel/boot"
	"lotusos/kernel/klog"
	"lotusos/kernel/mm"
	"lotusos/kernel/sync"
)

var logger = klog.Logger("pmm")

// BitmapAllocator implements a physical frame allocator that tracks the
// state of every frame between physical address 0 and the end of the
// highest memory map entry with a bitmap. A second bitmap of the same size
// records the frames that can never be released. Both live in a "scratch"
// run of usable frames and are accessed through the kernel's direct map.
//
// The zero value is an uninitialized allocator; Init must be called before
// any other method.
type BitmapAllocator struct {
	lock sync.IRQRWSpinlock

	// totalFrames is the number of frames tracked by the bitmap.
	totalFrames uint64

	// usedFrames counts set bits; it always equals
	// freeBitmap.countSet(totalFrames).
	usedFrames uint64

	// scratchStart and scratchFrames describe the frames that hold the
	// bitmaps.
	scratchStart  mm.Frame
	scratchFrames uint64

	freeBitmap bitmap

	// reservedBitmap is a snapshot of freeBitmap taken at the end of Init,
	// before any frame is handed out.
	reservedBitmap bitmap
	initialized    bool
}

// Init sets up the allocator state from the boot memory map. dmap is used
// to reach the physical frames that store the bitmap.
//
// Frame 0, the frames backing the bitmap, the frames of every non-usable
// entry and the frames not described by any entry are marked as used.
func (alloc *BitmapAllocator) Init(mmap boot.MemoryMap, dmap mm.DirectMap) *kernel.Error {
	totalFrames := mmap.HighestEnd() >> mm.PageShift
	if totalFrames == 0 {
		return mm.ErrRegionTooSmall
	}

	var (
		bitmapWords   = (totalFrames + 63) >> 6
		scratchFrames = mm.Size(2 * bitmapWords << 3).Pages()
		scratchStart  = mm.InvalidFrame
	)

	// The bitmap is stored in the first usable region at or above frame 1
	// that can hold it.
	mmap.Visit(func(entry *boot.MemoryMapEntry) bool {
		if !entry.IsUsable() {
			return true
		}

		start, end := usableFrames(entry)
		if start == 0 {
			start = 1
		}
		if start < end && end-start >= scratchFrames {
			scratchStart = mm.Frame(start)
			return false
		}
		return true
	})

	if !scratchStart.Valid() {
		return mm.ErrRegionTooSmall
	}

	scratch := unsafe.Slice(
		(*uint64)(dmap.Ptr(scratchStart.Address().Address())),
		2*bitmapWords,
	)
	freeBitmap := bitmap(scratch[:bitmapWords:bitmapWords])
	reservedBitmap := bitmap(scratch[bitmapWords:])

	// Everything starts out as used; holes in the memory map stay that way
	for i := range freeBitmap {
		freeBitmap[i] = ^uint64(0)
	}

	mmap.Visit(func(entry *boot.MemoryMapEntry) bool {
		if entry.IsUsable() {
			if start, end := usableFrames(entry); start < end {
				freeBitmap.clearRange(start, end-start)
			}
		}
		return true
	})

	// Non-usable entries win over any usable entry they overlap with
	mmap.Visit(func(entry *boot.MemoryMapEntry) bool {
		if !entry.IsUsable() && entry.Length != 0 {
			start := entry.Base >> mm.PageShift
			end := (entry.End() + mm.PageSize - 1) >> mm.PageShift
			if end > totalFrames {
				end = totalFrames
			}
			if start < end {
				freeBitmap.setRange(start, end-start)
			}
		}
		return true
	})

	freeBitmap.set(0)
	freeBitmap.setRange(uint64(scratchStart), scratchFrames)
	copy(reservedBitmap, freeBitmap)

	irqState := alloc.lock.Lock()
	alloc.totalFrames = totalFrames
	alloc.usedFrames = freeBitmap.countSet(totalFrames)
	alloc.scratchStart = scratchStart
	alloc.scratchFrames = scratchFrames
	alloc.freeBitmap = freeBitmap
	alloc.reservedBitmap = reservedBitmap
	alloc.initialized = true
	alloc.lock.Unlock(irqState)

	alloc.printStats(mmap)
	return nil
}

// usableFrames returns the range of frames fully contained in entry.
// Reported addresses may not be page-aligned; the start is rounded up and
// the end rounded down.
func usableFrames(entry *boot.MemoryMapEntry) (start, end uint64) {
	start = (entry.Base + mm.PageSize - 1) >> mm.PageShift
	end = entry.End() >> mm.PageShift
	return start, end
}

// Allocate reserves the first run of free frames that can hold layout.Size
// bytes and starts at a multiple of layout.Align. The search and the update
// of the bitmap happen while holding the write lock.
func (alloc *BitmapAllocator) Allocate(layout mm.Layout) (mm.AlignedAddress[mm.Physical], *kernel.Error) {
	if !layout.Valid() {
		return mm.AlignedAddress[mm.Physical]{}, mm.ErrInvalidLayout
	}

	var (
		frameCount = layout.Pages()
		frameAlign = uint64(1)
	)
	if layout.Align > mm.PageSize {
		frameAlign = layout.Align >> mm.PageShift
	}

	irqState := alloc.lock.Lock()
	defer alloc.lock.Unlock(irqState)

	if !alloc.initialized {
		return mm.AlignedAddress[mm.Physical]{}, mm.ErrUninitialized
	}

	switch freeFrames := alloc.totalFrames - alloc.usedFrames; {
	case freeFrames == 0:
		return mm.AlignedAddress[mm.Physical]{}, mm.ErrOutOfMemory
	case freeFrames < frameCount:
		return mm.AlignedAddress[mm.Physical]{}, mm.ErrNotEnoughMemory
	}

	start, ok := alloc.freeBitmap.findClearRun(frameCount, frameAlign, alloc.totalFrames)
	if !ok {
		return mm.AlignedAddress[mm.Physical]{}, mm.ErrRequestUnfulfillable
	}

	alloc.freeBitmap.setRange(start, frameCount)
	alloc.usedFrames += frameCount
	return mm.Frame(start).Address(), nil
}

// Deallocate releases the frames reserved by a call to Allocate with the
// same layout. Ranges that touch a permanently reserved frame fail with
// mm.ErrInvalidAddress. If any of the frames is not currently allocated the
// call fails with mm.ErrDoubleFree and no frame is released.
func (alloc *BitmapAllocator) Deallocate(addr mm.AlignedAddress[mm.Physical], layout mm.Layout) *kernel.Error {
	if !layout.Valid() {
		return mm.ErrInvalidLayout
	}

	var (
		start      = uint64(mm.FrameFromAddress(addr.Address()))
		frameCount = layout.Pages()
	)

	irqState := alloc.lock.Lock()
	defer alloc.lock.Unlock(irqState)

	if !alloc.initialized {
		return mm.ErrUninitialized
	}

	if start+frameCount > alloc.totalFrames || start+frameCount < start || alloc.reservedBitmap.anySet(start, frameCount) {
		return mm.ErrInvalidAddress
	}

	if !alloc.freeBitmap.allSet(start, frameCount) {
		return mm.ErrDoubleFree
	}

	alloc.freeBitmap.clearRange(start, frameCount)
	alloc.usedFrames -= frameCount
	return nil
}

// Used returns the number of frames currently in use, including frames that
// are permanently reserved.
func (alloc *BitmapAllocator) Used() uint64 {
	irqState := alloc.lock.RLock()
	defer alloc.lock.RUnlock(irqState)
	return alloc.usedFrames
}

// Free returns the number of frames available for allocation.
func (alloc *BitmapAllocator) Free() uint64 {
	irqState := alloc.lock.RLock()
	defer alloc.lock.RUnlock(irqState)
	return alloc.totalFrames - alloc.usedFrames
}

// Total returns the number of frames tracked by the allocator.
func (alloc *BitmapAllocator) Total() uint64 {
	irqState := alloc.lock.RLock()
	defer alloc.lock.RUnlock(irqState)
	return alloc.totalFrames
}

// IsUsed returns true if the frame is allocated or reserved. Frames beyond
// the tracked range are always reported as used.
func (alloc *BitmapAllocator) IsUsed(frame mm.Frame) bool {
	irqState := alloc.lock.RLock()
	defer alloc.lock.RUnlock(irqState)
	return uint64(frame) >= alloc.totalFrames || alloc.freeBitmap.isSet(uint64(frame))
}

// printStats logs the memory map and a summary of the allocator state.
func (alloc *BitmapAllocator) printStats(mmap boot.MemoryMap) {
	mmap.Log(logger)

	var (
		total = alloc.Total()
		free  = alloc.Free()
	)
	logger.Info("frame allocator initialized",
		"free", free,
		"total", total,
		"free_pct", free*100/total,
		"bitmap", alloc.scratchStart.Address(),
		"bitmap_frames", alloc.scratchFrames,
	)
}
