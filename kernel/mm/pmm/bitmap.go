package pmm

import (
	"math/bits"

	"lotusos/kernel/mm"
)

// bitmap tracks frame usage with one bit per frame; a set bit marks a used
// frame. Bit i lives in word i/64 at position i%64.
type bitmap []uint64

func (b bitmap) isSet(index uint64) bool {
	return b[index>>6]&(1<<(index&63)) != 0
}

func (b bitmap) set(index uint64) {
	b[index>>6] |= 1 << (index & 63)
}

// setRange marks frames [start, start+count) as used.
func (b bitmap) setRange(start, count uint64) {
	for index := start; index < start+count; index++ {
		b.set(index)
	}
}

// clearRange marks frames [start, start+count) as free.
func (b bitmap) clearRange(start, count uint64) {
	for index := start; index < start+count; index++ {
		b[index>>6] &^= 1 << (index & 63)
	}
}

// allSet returns true if every frame in [start, start+count) is used.
func (b bitmap) allSet(start, count uint64) bool {
	for index := start; index < start+count; index++ {
		if !b.isSet(index) {
			return false
		}
	}
	return true
}

// anySet returns true if at least one frame in [start, start+count) is used.
func (b bitmap) anySet(start, count uint64) bool {
	for index := start; index < start+count; index++ {
		if b.isSet(index) {
			return true
		}
	}
	return false
}

// countSet returns the number of used frames among the first limit frames.
func (b bitmap) countSet(limit uint64) uint64 {
	var count uint64
	fullWords := limit >> 6
	for _, word := range b[:fullWords] {
		count += uint64(bits.OnesCount64(word))
	}
	if rem := limit & 63; rem != 0 {
		count += uint64(bits.OnesCount64(b[fullWords] & (1<<rem - 1)))
	}
	return count
}

// findClearRun returns the index of the first run of count clear bits below
// limit whose start is a multiple of align.
func (b bitmap) findClearRun(count, align, limit uint64) (uint64, bool) {
	if count == 0 {
		return 0, false
	}

	start := uint64(0)
	for start+count <= limit {
		// Skip whole words with no free frames
		if start&63 == 0 && b[start>>6] == ^uint64(0) {
			start = mm.AlignUp(start+64, align)
			continue
		}

		runEnd := start
		for runEnd < start+count && !b.isSet(runEnd) {
			runEnd++
		}
		if runEnd == start+count {
			return start, true
		}

		// runEnd is used; the next candidate starts past it
		start = mm.AlignUp(runEnd+1, align)
	}

	return 0, false
}
