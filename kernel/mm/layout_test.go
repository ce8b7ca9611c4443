package mm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	specs := []struct {
		size, align uint64
		expErr      bool
	}{
		{8, 8, false},
		{4096, 4096, false},
		{1, 1, false},
		{0, 8, true},
		{8, 0, true},
		{8, 12, true},
		{^uint64(0), 4096, true},
		{^uint64(0) - 1, 1, true},
		{maxLayoutSize + 1, 1, true},
		{maxLayoutSize, 16, false},
	}

	for specIndex, spec := range specs {
		l, err := NewLayout(spec.size, spec.align)
		if spec.expErr {
			require.Equal(t, ErrInvalidLayout, err, "[spec %d]", specIndex)
			continue
		}

		require.Nil(t, err, "[spec %d]", specIndex)
		require.Equal(t, Layout{Size: spec.size, Align: spec.align}, l)
	}
}

func TestLayoutPages(t *testing.T) {
	require.Equal(t, uint64(1), Layout{Size: 1, Align: 1}.Pages())
	require.Equal(t, uint64(2), Layout{Size: 8192, Align: 4096}.Pages())
	require.Equal(t, uint64(3), Layout{Size: 8193, Align: 4096}.Pages())
	require.Equal(t, Layout{Size: 3 * PageSize, Align: PageSize}, PageLayout(3))

	// The largest valid size still rounds up without wrapping
	require.Equal(t, uint64(1)<<(64-PageShift)-1, Layout{Size: maxLayoutSize, Align: 16}.Pages())
}

func TestAlignHelpers(t *testing.T) {
	require.Equal(t, uint64(0x2000), AlignUp(uint64(0x1001), PageSize))
	require.Equal(t, uint64(0x1000), AlignUp(uint64(0x1000), PageSize))
	require.Equal(t, uintptr(0x1000), AlignDown(uintptr(0x1fff), PageSize))
	require.True(t, IsAligned(uint32(64), 16))
	require.False(t, IsAligned(uint32(65), 16))
	require.True(t, IsPowerOfTwo(uint8(128)))
	require.False(t, IsPowerOfTwo(uint16(0)))
	require.False(t, IsPowerOfTwo(uint16(6)))
}

func TestSize(t *testing.T) {
	specs := []struct {
		size     Size
		expStr   string
		expPages uint64
	}{
		{0, "0B", 0},
		{100, "100B", 1},
		{4 * Kb, "4KiB", 1},
		{3 * Mb, "3MiB", 768},
		{2 * Gb, "2GiB", 524288},
	}

	for specIndex, spec := range specs {
		require.Equal(t, spec.expStr, spec.size.String(), "[spec %d]", specIndex)
		require.Equal(t, spec.expPages, spec.size.Pages(), "[spec %d]", specIndex)
	}
}
