// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import "math"

// MaxUint24 is the largest value representable in a 24-bit table field.
const MaxUint24 = 1<<24 - 1

// ToInt converts a uint32 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint32, overflowErr error) (int, error) {
	if uint64(size) > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToUint32 converts a non-negative int to uint32, returning overflowErr if it doesn't fit.
func ToUint32(size int, overflowErr error) (uint32, error) {
	if size < 0 || uint64(size) > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(size), nil //nolint:gosec // checked above
}

// ToUint24 converts a non-negative int to a 24-bit field value, returning overflowErr if it doesn't fit.
func ToUint24(size int, overflowErr error) (uint32, error) {
	if size < 0 || size > MaxUint24 {
		return 0, overflowErr
	}
	return uint32(size), nil //nolint:gosec // checked above
}

// AddInt64 adds two non-negative int64 values, returning (result, false) on overflow.
func AddInt64(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
