package arena

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// plainTypes caches the pointer-freedom check per type.
var plainTypes sync.Map // reflect.Type -> bool

// Alloc allocates a T, stores v in it and returns its handle and address.
// T must not contain Go pointers.
func Alloc[T any](a *Arena, v T) (Ref, *T, error) {
	ref, s, err := AllocMany[T](a, 1)
	if err != nil {
		return 0, nil, err
	}
	if len(s) == 0 {
		return 0, nil, fmt.Errorf("%w: zero-sized type %T", ErrInvalidConfig, v)
	}
	s[0] = v
	return ref, &s[0], nil
}

// AllocMany allocates an array of count zeroed T values.
// T must not contain Go pointers.
func AllocMany[T any](a *Arena, count int) (Ref, []T, error) {
	var zero T
	if err := checkPlain(reflect.TypeOf(&zero).Elem()); err != nil {
		return 0, nil, err
	}
	size := int(unsafe.Sizeof(zero))
	if count < 0 || (size > 0 && count > a.ceiling/size) {
		return 0, nil, fmt.Errorf("%w: %q cannot hold %d x %d bytes", ErrOutOfMemory, a.cfg.Name, count, size)
	}
	align := max(int(unsafe.Alignof(zero)), DefaultAlignment)

	ref, b, err := a.alloc(size*count, align)
	if err != nil || len(b) == 0 {
		return ref, nil, err
	}
	return ref, unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), count), nil
}

// Get returns the T stored at ref, or nil for the nil handle or a ref outside
// the allocated part of the arena.
func Get[T any](a *Arena, ref Ref) *T {
	var zero T
	b := a.Bytes(ref, int(unsafe.Sizeof(zero)))
	if b == nil {
		return nil
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// Slice returns the count values of type T stored at ref.
func Slice[T any](a *Arena, ref Ref, count int) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if count <= 0 || size == 0 {
		return nil
	}
	b := a.Bytes(ref, size*count)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), count)
}

func checkPlain(t reflect.Type) error {
	if v, ok := plainTypes.Load(t); ok {
		if v.(bool) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrPointerType, t)
	}
	plain := !hasPointers(t)
	plainTypes.Store(t, plain)
	if !plain {
		return fmt.Errorf("%w: %s", ErrPointerType, t)
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
