package glr

import (
	"errors"
	"fmt"

	"github.com/hupe1980/glr/classfile"
	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/symtab"
)

var (
	// ErrClosed is returned by a Loader after Close.
	ErrClosed = errors.New("loader closed")
	// ErrDuplicateClass is returned when loading a class whose name is taken.
	ErrDuplicateClass = errors.New("duplicate class")
	// ErrOutOfMemory is returned when an arena or the class table cannot grow.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrNotFound is returned when no class repository has the requested class.
	ErrNotFound = errors.New("class not found")
)

// Decode errors.
var (
	ErrBadClassMagic     = classfile.ErrBadClassMagic
	ErrBadClassType      = classfile.ErrBadClassType
	ErrBadAccessModifier = classfile.ErrBadAccessModifier
	ErrBadConstSize      = classfile.ErrBadConstSize
	ErrBadConstType      = classfile.ErrBadConstType
	ErrBadConstData      = classfile.ErrBadConstData
	ErrBadConstIndex     = classfile.ErrBadConstIndex
	ErrBadFieldSize      = classfile.ErrBadFieldSize
	ErrBadEnumSize       = classfile.ErrBadEnumSize
	ErrBadEnumField      = classfile.ErrBadEnumField
	ErrBadMethodSize     = classfile.ErrBadMethodSize
	ErrBadCodePos        = classfile.ErrBadCodePos
	ErrBadCodeSize       = classfile.ErrBadCodeSize
	ErrBadCodeData       = classfile.ErrBadCodeData
	ErrBadClassName      = classfile.ErrBadClassName
	ErrDuplicateMember   = classfile.ErrDuplicateMember
)

// ClassError reports which class an operation failed on.
//
// The original underlying error can be accessed via errors.Unwrap.
type ClassError struct {
	Name  string
	cause error
}

func (e *ClassError) Error() string {
	return fmt.Sprintf("class %q: %v", e.Name, e.cause)
}

func (e *ClassError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Memory exhaustion unification.
	if errors.Is(err, arena.ErrOutOfMemory) ||
		errors.Is(err, symtab.ErrOutOfMemory) ||
		errors.Is(err, symtab.ErrFull) {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if errors.Is(err, arena.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
