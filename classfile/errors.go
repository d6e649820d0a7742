package classfile

import (
	"errors"
	"fmt"
)

var (
	ErrBadClassMagic     = errors.New("bad class magic")
	ErrBadClassType      = errors.New("bad class type")
	ErrBadAccessModifier = errors.New("bad access modifier")
	ErrBadConstSize      = errors.New("bad constant pool size")
	ErrBadConstType      = errors.New("bad constant type")
	ErrBadConstData      = errors.New("bad constant data")
	ErrBadConstIndex     = errors.New("bad constant index")
	ErrBadFieldSize      = errors.New("bad field size")
	ErrBadEnumSize       = errors.New("bad enum size")
	ErrBadEnumField      = errors.New("bad enum field")
	ErrBadMethodSize     = errors.New("bad method size")
	ErrBadCodePos        = errors.New("bad code position")
	ErrBadCodeSize       = errors.New("bad code size")
	ErrBadCodeData       = errors.New("bad code data")
	ErrBadClassName      = errors.New("bad class name")

	// ErrDuplicateMember is returned when two fields, two methods or two
	// enumerants of one enum share a name.
	ErrDuplicateMember = errors.New("duplicate member")
)

// DecodeError reports where decoding stopped.
//
// Err is one of the sentinel errors of this package, or an allocation error
// wrapping arena.ErrOutOfMemory.
type DecodeError struct {
	Err    error
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("classfile: %v at offset %d: %s", e.Err, e.Offset, e.Detail)
	}
	return fmt.Sprintf("classfile: %v at offset %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }
