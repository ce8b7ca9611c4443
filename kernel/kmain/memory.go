package kmain

import (
	"github.com/pkg/errors"

	"lotusos/kernel"
	"lotusos/kernel/boot"
	"lotusos/kernel/mm"
	"lotusos/kernel/mm/heap"
	"lotusos/kernel/mm/pmm"
	"lotusos/kernel/mm/vmm"
)

// heapMemoryFlags describes the mappings that back the kernel heap.
const heapMemoryFlags = vmm.KernelOnly | vmm.Readable | vmm.Writable | vmm.Cachable

// Memory groups the memory services created at boot.
type Memory struct {
	Frames *pmm.BitmapAllocator
	VMM    *vmm.Manager
	Heap   *heap.Allocator

	root    vmm.PageDirectoryTable
	heapEnd mm.AlignedAddress[mm.Virtual]
	cfg     Config
}

// InitMemory brings up the memory subsystem in dependency order: the frame
// allocator, the page table manager and finally the heap, which is then
// installed as the global allocator. flushTLBEntry may be nil to use the
// hardware default.
func InitMemory(info *boot.Info, cfg Config, root vmm.PageDirectoryTable, flushTLBEntry func(uintptr)) (*Memory, error) {
	dmap := mm.DirectMap{Offset: uintptr(info.PhysicalMemoryOffset)}
	if cfg.DirectMapOffset != 0 {
		dmap.Offset = cfg.DirectMapOffset
	}

	mem := &Memory{
		Frames: new(pmm.BitmapAllocator),
		root:   root,
		cfg:    cfg,
	}

	if err := mem.Frames.Init(info.MemoryMap, dmap); err != nil {
		return nil, errors.Wrap(err, "frame allocator init failed")
	}

	mem.VMM = vmm.NewManager(mem.Frames, dmap, flushTLBEntry)

	heapStart, err := mem.mapHeapWindow()
	if err != nil {
		return nil, errors.Wrap(err, "heap mapping failed")
	}

	mem.Heap = heap.NewAllocator(mem.Frames, dmap)
	if kerr := mem.Heap.Init(heapStart.Uintptr(), uint64(cfg.HeapInitialSize)); kerr != nil {
		return nil, errors.Wrap(kerr, "heap init failed")
	}
	mem.Heap.SetGrowFn(mem.growHeap)

	mm.SetGlobalAllocator(mem.Heap)
	return mem, nil
}

// mapHeapWindow backs the initial heap with frames and returns its start.
func (mem *Memory) mapHeapWindow() (mm.AlignedAddress[mm.Virtual], *kernel.Error) {
	var (
		size       = uint64(mm.AlignUp(mem.cfg.HeapInitialSize, mm.PageSize))
		start, err = mm.NewAlignedAddress[mm.Virtual](mem.cfg.HeapWindowStart)
	)
	if err != nil {
		return start, err
	}

	end, err := mm.NewAlignedAddress[mm.Virtual](mem.cfg.HeapWindowEnd)
	if err != nil {
		return start, err
	}

	if start, err = mem.VMM.FindFreeMappingArea(mem.root, start, end, size); err != nil {
		return start, err
	}

	if err = mem.VMM.AllocateAndMap(mem.root, start, size, heapMemoryFlags); err != nil {
		return start, err
	}

	mem.heapEnd, err = start.AddPages(size >> mm.PageShift)
	return start, err
}

// growHeap maps at least minSize more bytes right after the current end of
// the heap. It is only invoked by the heap while it holds its lock so calls
// never overlap.
func (mem *Memory) growHeap(minSize uint64) (uintptr, uint64, *kernel.Error) {
	size := uint64(mem.cfg.HeapGrowSize)
	if minSize > size {
		size = minSize
	}
	size = mm.AlignUp(size, mm.PageSize)

	start := mem.heapEnd
	if start.Raw() >= mem.cfg.HeapWindowEnd || mem.cfg.HeapWindowEnd-start.Raw() < size {
		return 0, 0, vmm.ErrVirtualMemoryExhausted
	}

	if err := mem.VMM.AllocateAndMap(mem.root, start, size, heapMemoryFlags); err != nil {
		return 0, 0, err
	}

	end, err := start.AddPages(size >> mm.PageShift)
	if err != nil {
		return 0, 0, err
	}
	mem.heapEnd = end

	return start.Uintptr(), size, nil
}
