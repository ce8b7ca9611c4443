package vmm

import (
	"testing"

	"lotusos/kernel/mm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var (
		pte   pageTableEntry
		flag1 = PageTableEntryFlag(1 << 10)
		flag2 = PageTableEntryFlag(1 << 21)
	)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}

	pte.SetFlags(flag1 | flag2)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if !pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return true")
	}

	pte.ClearFlags(flag1)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return false")
	}

	pte.ClearFlags(flag1 | flag2)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}
}

func TestPageTableEntryFlagBits(t *testing.T) {
	specs := []struct {
		flag PageTableEntryFlag
		bit  uint
	}{
		{FlagPresent, 0},
		{FlagRW, 1},
		{FlagUserAccessible, 2},
		{FlagWriteThroughCaching, 3},
		{FlagDoNotCache, 4},
		{FlagAccessed, 5},
		{FlagDirty, 6},
		{FlagHugePage, 7},
		{FlagGlobal, 8},
		{FlagNoExecute, 63},
	}

	for specIndex, spec := range specs {
		if exp := PageTableEntryFlag(1) << spec.bit; spec.flag != exp {
			t.Errorf("[spec %d] expected flag value 0x%x; got 0x%x", specIndex, exp, spec.flag)
		}
	}
}

func TestPageTableEntryFrameEncoding(t *testing.T) {
	var (
		pte       pageTableEntry
		physFrame = mm.Frame(123)
	)

	pte.SetFlags(FlagPresent | FlagNoExecute)
	pte.SetFrame(physFrame)
	if got := pte.Frame(); got != physFrame {
		t.Fatalf("expected pte.Frame() to return %v; got %v", physFrame, got)
	}

	if !pte.HasFlags(FlagPresent | FlagNoExecute) {
		t.Fatal("expected SetFrame to preserve the entry flags")
	}

	// Bits above 51 are flags, not address bits
	pte.SetFrame(mm.Frame(0xff_ffff_ffff))
	if got, exp := uint64(pte)&ptePhysPageMask, uint64(0xf_ffff_ffff_f000); got != exp {
		t.Fatalf("expected encoded address 0x%x; got 0x%x", exp, got)
	}
}

func TestHugePageBase(t *testing.T) {
	// Bit 12 is the PAT bit for huge page entries
	pte := pageTableEntry(0x4000_1000) | pageTableEntry(FlagPresent|FlagHugePage)

	if got, exp := pte.hugePageBase(levelPDPT), uint64(0x4000_0000); got != exp {
		t.Errorf("expected 1G base 0x%x; got 0x%x", exp, got)
	}

	pte = pageTableEntry(0x0060_1000) | pageTableEntry(FlagPresent|FlagHugePage)
	if got, exp := pte.hugePageBase(levelPD), uint64(0x0060_0000); got != exp {
		t.Errorf("expected 2M base 0x%x; got 0x%x", exp, got)
	}
}

func TestMemoryFlagsToPTEFlags(t *testing.T) {
	specs := []struct {
		input MemoryFlags
		exp   PageTableEntryFlag
	}{
		{KernelOnly | Readable | Writable | Executable | Cachable, FlagPresent | FlagRW},
		{KernelOnly | Readable | Cachable, FlagPresent | FlagNoExecute},
		{KernelOnly | Readable | Writable, FlagPresent | FlagRW | FlagNoExecute | FlagDoNotCache},
		{Readable | Executable | Cachable, FlagPresent | FlagUserAccessible},
	}

	for specIndex, spec := range specs {
		if got := spec.input.ToPTEFlags(); got != spec.exp {
			t.Errorf("[spec %d] expected flags 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}
