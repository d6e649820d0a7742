package conv

import (
	"errors"
	"fmt"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// To converts v to T, failing when the value changes sign or magnitude.
func To[T, F Integer](v F) (T, error) {
	t := T(v)
	if F(t) != v || (v < 0) != (t < 0) {
		return 0, fmt.Errorf("%w: %d cannot be converted to %T", ErrOverflow, v, t)
	}
	return t, nil
}

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) { return To[uint32](v) }

// Int64ToInt converts int64 to int safely.
func Int64ToInt(v int64) (int, error) { return To[int](v) }
