//go:build linux

package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"lotusos/kernel/mm"
)

func TestArena(t *testing.T) {
	a, err := New(3*mm.Kb + 1)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	require.Equal(t, mm.Size(mm.PageSize), a.Size())
	require.True(t, mm.IsAligned(a.Base(), mm.PageSize))
	require.Len(t, a.Bytes(), mm.PageSize)

	dm := a.DirectMap(0x100000)
	phys, _ := mm.NewAddress[mm.Physical](0x100010)
	*(*uint64)(dm.Ptr(phys)) = 0xdeadbeef
	require.Equal(t, byte(0xef), a.Bytes()[0x10])

	require.NoError(t, a.Reset())
	require.Equal(t, uint64(0), *(*uint64)(unsafe.Pointer(&a.Bytes()[0x10])))
}

func TestArenaZeroSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}

func TestArenaDoubleClose(t *testing.T) {
	a, err := New(mm.Mb)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}
