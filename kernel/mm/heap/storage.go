package heap

import (
	"unsafe"

	"golang.org/x/exp/slices"

	"lotusos/kernel"
	"lotusos/kernel/mm"
)

// FreeRegion describes a contiguous range of free heap memory.
type FreeRegion struct {
	Start uintptr
	Size  uintptr
}

// End returns the address right after the last byte of the region.
func (r FreeRegion) End() uintptr { return r.Start + r.Size }

// overlaps returns true if r and other share at least one byte.
func (r FreeRegion) overlaps(other FreeRegion) bool {
	return r.Start < other.End() && other.Start < r.End()
}

const (
	regionRecordSize  = unsafe.Sizeof(FreeRegion{})
	regionRecordAlign = unsafe.Alignof(FreeRegion{})

	// minStorageRecords is the smallest capacity the storage is created
	// with. Actual capacities are rounded up to fill whole pages.
	minStorageRecords = 32
)

// regionStorage keeps address ranges sorted by start address in an array
// that lives in frames obtained straight from the frame allocator. It never
// allocates from the heap it describes. The heap uses one instance for its
// free regions and another for the extents it manages.
type regionStorage struct {
	frames mm.FrameAllocator
	dmap   mm.DirectMap

	extent  mm.AlignedAddress[mm.Physical]
	layout  mm.Layout
	regions []FreeRegion

	// minCapacity is the capacity of the first extent; shrinking never
	// goes below it.
	minCapacity int
}

// init reserves the first storage extent.
func (s *regionStorage) init() *kernel.Error {
	extent, layout, regions, err := s.allocExtent(minStorageRecords)
	if err != nil {
		return err
	}

	s.extent, s.layout, s.regions = extent, layout, regions
	s.minCapacity = cap(regions)
	return nil
}

// release returns the storage extent to the frame allocator.
func (s *regionStorage) release() {
	if s.regions == nil {
		return
	}
	if err := s.frames.Deallocate(s.extent, s.layout); err != nil {
		logger.Warn("unable to release region storage", "extent", s.extent, "err", err)
	}
	s.regions = nil
}

// allocExtent obtains frames for at least minRecords records and returns an
// empty slice overlaid on them.
func (s *regionStorage) allocExtent(minRecords int) (mm.AlignedAddress[mm.Physical], mm.Layout, []FreeRegion, *kernel.Error) {
	layout := mm.PageLayout(mm.Size(uintptr(minRecords) * regionRecordSize).Pages())

	extent, err := s.frames.Allocate(layout)
	if err != nil {
		return mm.AlignedAddress[mm.Physical]{}, mm.Layout{}, nil, err
	}

	capacity := int(uintptr(layout.Size) / regionRecordSize)
	regions := unsafe.Slice((*FreeRegion)(s.dmap.Ptr(extent.Address())), capacity)[:0]
	return extent, layout, regions, nil
}

// resize moves the records to an extent that holds at least capacity
// records and releases the current one.
func (s *regionStorage) resize(capacity int) *kernel.Error {
	extent, layout, regions, err := s.allocExtent(capacity)
	if err != nil {
		return err
	}

	regions = regions[:len(s.regions)]
	if len(regions) != 0 {
		kernel.Memcopy(
			uintptr(unsafe.Pointer(&s.regions[0])),
			uintptr(unsafe.Pointer(&regions[0])),
			uintptr(len(regions))*regionRecordSize,
		)
	}

	oldExtent, oldLayout := s.extent, s.layout
	s.extent, s.layout, s.regions = extent, layout, regions

	return s.frames.Deallocate(oldExtent, oldLayout)
}

func (s *regionStorage) len() int { return len(s.regions) }

func (s *regionStorage) capacity() int { return cap(s.regions) }

func (s *regionStorage) at(index int) *FreeRegion { return &s.regions[index] }

// search returns the index of the first region that starts at or after addr.
func (s *regionStorage) search(addr uintptr) int {
	index, _ := slices.BinarySearchFunc(s.regions, addr, func(r FreeRegion, addr uintptr) int {
		switch {
		case r.Start < addr:
			return -1
		case r.Start > addr:
			return 1
		}
		return 0
	})
	return index
}

// insert adds r keeping the array sorted. The storage doubles in size when
// full; if that fails mm.ErrInternalStorageFull is returned and the storage
// is left unchanged.
func (s *regionStorage) insert(r FreeRegion) *kernel.Error {
	if len(s.regions) == cap(s.regions) {
		oldCapacity := cap(s.regions)
		if err := s.resize(oldCapacity * 2); err != nil {
			logger.Warn("unable to grow region storage", "capacity", oldCapacity, "err", err)
			return mm.ErrInternalStorageFull
		}
		logger.Debug("grew region storage", "from", oldCapacity, "to", cap(s.regions), "extent", s.extent)
	}

	index := s.search(r.Start)
	s.regions = s.regions[:len(s.regions)+1]
	copy(s.regions[index+1:], s.regions[index:])
	s.regions[index] = r
	return nil
}

// remove drops the region at index. Once at most a quarter of the storage
// is in use it is moved to an extent half its size.
func (s *regionStorage) remove(index int) {
	copy(s.regions[index:], s.regions[index+1:])
	s.regions = s.regions[:len(s.regions)-1]

	if oldCapacity := cap(s.regions); oldCapacity > s.minCapacity && len(s.regions) <= oldCapacity/4 {
		// Keeping the larger extent is harmless so errors are only logged
		if err := s.resize(oldCapacity / 2); err != nil {
			logger.Warn("unable to shrink region storage", "capacity", oldCapacity, "err", err)
			return
		}
		logger.Debug("shrank region storage", "from", oldCapacity, "to", cap(s.regions), "extent", s.extent)
	}
}

// coalesce merges regions where one ends exactly where the next starts,
// repeating full passes until a pass performs no merges. It returns the
// number of merges performed.
func (s *regionStorage) coalesce() int {
	var total int
	for {
		var merges int
		for index := 0; index+1 < len(s.regions); {
			cur, next := &s.regions[index], s.regions[index+1]
			if cur.End() != next.Start {
				index++
				continue
			}

			cur.Size += next.Size
			s.remove(index + 1)
			merges++
		}

		if merges == 0 {
			return total
		}
		total += merges
	}
}

// contains returns true if r lies entirely inside a single stored region.
func (s *regionStorage) contains(r FreeRegion) bool {
	index := s.search(r.Start)
	if index < len(s.regions) && s.regions[index].Start == r.Start {
		return r.End() <= s.regions[index].End()
	}
	return index > 0 && r.End() <= s.regions[index-1].End()
}

// overlapping returns true if r shares a byte with any stored region.
func (s *regionStorage) overlapping(r FreeRegion) bool {
	index := s.search(r.Start)
	if index > 0 && s.regions[index-1].overlaps(r) {
		return true
	}
	return index < len(s.regions) && s.regions[index].overlaps(r)
}
