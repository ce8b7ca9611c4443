package boot

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

var testMap = MemoryMap{
	{Base: 0x0, Length: 0x9fc00, Type: Usable},
	{Base: 0x9fc00, Length: 0x400, Type: Reserved},
	{Base: 0x100000, Length: 0x7ee0000, Type: Usable},
	{Base: 0x7fe0000, Length: 0x20000, Type: EntryType(42)},
	{Base: 0xfffc0000, Length: 0x40000, Type: AcpiNonVolatile},
}

func TestEntryTypeString(t *testing.T) {
	specs := []struct {
		input EntryType
		exp   string
	}{
		{Usable, "usable"},
		{Reserved, "reserved"},
		{AcpiReclaimable, "ACPI (reclaimable)"},
		{AcpiNonVolatile, "ACPI NVS"},
		{BadMemory, "bad memory"},
		{Framebuffer, "framebuffer"},
		{KernelAndModules, "kernel and modules"},
		{entryUnknown, "unknown"},
	}

	for specIndex, spec := range specs {
		require.Equal(t, spec.exp, spec.input.String(), "[spec %d]", specIndex)
	}
}

func TestVisit(t *testing.T) {
	var visited []EntryType
	testMap.Visit(func(entry *MemoryMapEntry) bool {
		visited = append(visited, entry.Type)
		return true
	})
	require.Equal(t, []EntryType{Usable, Reserved, Usable, Reserved, AcpiNonVolatile}, visited)

	// The unknown entry is only presented as reserved
	require.Equal(t, EntryType(42), testMap[3].Type)

	// Aborting the scan
	var count int
	testMap.Visit(func(*MemoryMapEntry) bool {
		count++
		return false
	})
	require.Equal(t, 1, count)
}

func TestHighestEndAndUsableBytes(t *testing.T) {
	require.Equal(t, uint64(0x100000000), testMap.HighestEnd())
	require.Equal(t, uint64(0x9fc00+0x7ee0000), testMap.UsableBytes())
	require.Equal(t, uint64(0), MemoryMap{}.HighestEnd())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	MemoryMap{{Base: 0x100000, Length: 0x1000, Type: Usable}}.Log(slog.New(slog.NewTextHandler(&buf, nil)))

	require.Contains(t, buf.String(), "start=0x100000 end=0x101000 size=4096 type=usable")
	require.Contains(t, buf.String(), "kb=4")
}
