package pmm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapFindClearRun(t *testing.T) {
	b := make(bitmap, 2)

	// Mark frames 0-69 and 72 as used
	b.setRange(0, 70)
	b.set(72)

	specs := []struct {
		count, align, limit uint64
		expStart            uint64
		expOK               bool
	}{
		{1, 1, 128, 70, true},
		{2, 1, 128, 70, true},
		{3, 1, 128, 73, true},
		{2, 4, 128, 76, true},
		{1, 64, 128, 0, false},
		{56, 1, 128, 73, false},
		{55, 1, 128, 73, true},
		{1, 1, 70, 0, false},
	}

	for specIndex, spec := range specs {
		start, ok := b.findClearRun(spec.count, spec.align, spec.limit)
		require.Equal(t, spec.expOK, ok, "[spec %d]", specIndex)
		if ok {
			require.Equal(t, spec.expStart, start, "[spec %d]", specIndex)
		}
	}
}

func TestBitmapCounting(t *testing.T) {
	b := make(bitmap, 3)
	b.setRange(60, 10)
	b.set(130)

	require.Equal(t, uint64(11), b.countSet(192))
	require.Equal(t, uint64(10), b.countSet(130))
	require.Equal(t, uint64(4), b.countSet(64))
	require.True(t, b.allSet(60, 10))
	require.False(t, b.allSet(60, 11))

	b.clearRange(60, 5)
	require.Equal(t, uint64(6), b.countSet(192))
	require.False(t, b.isSet(64))
	require.True(t, b.isSet(65))
}
