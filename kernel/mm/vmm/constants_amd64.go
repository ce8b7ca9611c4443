package vmm

const (
	// pageLevels is the depth of the amd64 translation hierarchy.
	pageLevels = 4

	// Table levels counted from the root (PML4) down to the leaf (PT).
	levelPML4 = 0
	levelPDPT = 1
	levelPD   = 2
	levelPT   = 3

	// ptePhysPageMask selects bits 12-51 of an entry: the physical base of
	// the frame or next-level table it references.
	ptePhysPageMask = uint64(0x000f_ffff_ffff_f000)
)

// pageLevelShifts holds, per level, the position of the 9-bit table index
// inside a virtual address.
var pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}

// Entry bits understood by the MMU.
const (
	// FlagPresent marks a valid entry.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW permits writes.
	FlagRW

	// FlagUserAccessible permits ring 3 access. Cleared entries are kernel only.
	FlagUserAccessible

	// FlagWriteThroughCaching selects write-through instead of write-back.
	FlagWriteThroughCaching

	// FlagDoNotCache disables caching for the page.
	FlagDoNotCache

	// FlagAccessed is set by the CPU on first access.
	FlagAccessed

	// FlagDirty is set by the CPU on first write.
	FlagDirty

	// FlagHugePage turns a PDPT or PD entry into a 1G or 2M leaf.
	FlagHugePage

	// FlagGlobal keeps the translation cached across CR3 reloads.
	FlagGlobal

	// FlagNoExecute forbids instruction fetches from the page.
	FlagNoExecute PageTableEntryFlag = 1 << 63
)
