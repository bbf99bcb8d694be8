package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Sat8 stores an unsigned intermediate into a channel byte, saturating at 255.
func Sat8[T constraints.Unsigned](v T) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Wrap returns v modulo n for n > 0, always in [0, n).
func Wrap[T constraints.Integer](v, n T) T {
	if n <= 0 {
		return 0
	}
	r := v % n
	if r < 0 {
		r += n
	}
	return r
}
