package mm

import "golang.org/x/exp/constraints"

// AlignUp rounds v up to the next multiple of align. The alignment must be a
// power of two.
func AlignUp[T constraints.Unsigned](v, align T) T {
	return (v + align - 1) &^ (align - 1)
}

// AlignDown rounds v down to a multiple of align. The alignment must be a
// power of two.
func AlignDown[T constraints.Unsigned](v, align T) T {
	return v &^ (align - 1)
}

// IsAligned returns true if v is a multiple of align. The alignment must be a
// power of two.
func IsAligned[T constraints.Unsigned](v, align T) bool {
	return v&(align-1) == 0
}

// IsPowerOfTwo returns true if v is a non-zero power of two.
func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}
