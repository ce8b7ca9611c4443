package vmm

// MemoryFlags describe the intended use of a memory region independently of
// the page table entry encoding.
type MemoryFlags uint8

const (
	// KernelOnly restricts access to ring 0.
	KernelOnly MemoryFlags = 1 << iota

	// Readable marks the region as readable. Present pages are always
	// readable on amd64.
	Readable

	// Writable allows writes to the region.
	Writable

	// Executable allows instruction fetches from the region.
	Executable

	// Cachable enables caching for the region.
	Cachable
)

// ToPTEFlags converts f to the flags of a leaf page table entry.
func (f MemoryFlags) ToPTEFlags() PageTableEntryFlag {
	flags := FlagPresent
	if f&Writable != 0 {
		flags |= FlagRW
	}
	if f&KernelOnly == 0 {
		flags |= FlagUserAccessible
	}
	if f&Executable == 0 {
		flags |= FlagNoExecute
	}
	if f&Cachable == 0 {
		flags |= FlagDoNotCache
	}
	return flags
}
