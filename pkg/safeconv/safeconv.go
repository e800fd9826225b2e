// Package safeconv provides integer conversions that panic on overflow.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > uint64(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// MustUint64ToInt64 converts uint64 to int64, panics on overflow.
// Use for counters that cannot realistically exceed 2^63.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}

// Int64Bits reinterprets the bits of v as uint64, e.g. to seed a generator.
func Int64Bits(v int64) uint64 {
	return uint64(v) //nolint:gosec // two's complement reinterpretation is the point.
}
