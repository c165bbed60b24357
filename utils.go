package multilu

import "golang.org/x/exp/constraints"

// min and max are small generic numeric-ordering helpers, kept from the
// teacher's own generic min[T] (utils.go), extended with its natural
// counterpart and reused throughout the symbolic and dense-kernel code
// wherever a running bound needs updating.
func min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
