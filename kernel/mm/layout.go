package mm

import (
	"math"

	"lotusos/kernel"
)

// Layout describes the size and alignment of a memory request.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout returns a Layout after checking that size is non-zero and align
// is a power of two.
func NewLayout(size, align uint64) (Layout, *kernel.Error) {
	l := Layout{Size: size, Align: align}
	if !l.Valid() {
		return Layout{}, ErrInvalidLayout
	}
	return l, nil
}

// PageLayout returns the layout of count page-aligned pages.
func PageLayout(count uint64) Layout {
	return Layout{Size: count << PageShift, Align: PageSize}
}

// maxLayoutSize is the largest size that can be rounded up to a whole page
// without wrapping.
const maxLayoutSize = math.MaxUint64 - (PageSize - 1)

// Valid returns true if the layout describes a satisfiable request shape.
func (l Layout) Valid() bool {
	return l.Size != 0 && l.Size <= maxLayoutSize &&
		IsPowerOfTwo(l.Align) && l.Size+l.Align > l.Size
}

// Pages returns the number of pages needed to hold Size bytes.
func (l Layout) Pages() uint64 {
	return (l.Size + PageSize - 1) >> PageShift
}
