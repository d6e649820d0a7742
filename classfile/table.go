package classfile

import (
	"errors"
	"iter"

	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/symtab"
)

var (
	// ErrTableFull is returned by ClassTable.Insert when every slot is taken.
	ErrTableFull = symtab.ErrFull
	// ErrForeignClass is returned when inserting a class decoded into another Space.
	ErrForeignClass = errors.New("classfile: class belongs to another space")
)

// ClassTable maps class names to classes. Class records stay in the metadata
// arena of the Space; only the slot array lives in the table's own arena.
type ClassTable struct {
	sp   *Space
	syms *arena.Arena
	hdr  symtab.Header
}

// NewClassTable creates a table with room for capacity classes, rounded up to
// a power of two.
func NewClassTable(sp *Space, syms *arena.Arena, capacity int) (*ClassTable, error) {
	t := &ClassTable{sp: sp, syms: syms}
	if err := t.mapping().Init(capacity); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ClassTable) mapping() symtab.Mapping[classRecord, *classRecord] {
	return symtab.New[classRecord, *classRecord](t.sp.Meta, t.syms, &t.hdr)
}

// Insert adds c. Inserting a class that is already in the table does nothing.
// ErrTableFull leaves the table unchanged.
func (t *ClassTable) Insert(c Class) error {
	if c.sp != t.sp {
		return ErrForeignClass
	}
	return t.mapping().Insert(c.ref)
}

// Grow doubles the slot count.
func (t *ClassTable) Grow() error { return t.mapping().Grow() }

// Find returns the class named name.
func (t *ClassTable) Find(name string) (Class, bool) {
	ref, _, ok := t.mapping().FindString(name)
	if !ok {
		return Class{}, false
	}
	return Class{sp: t.sp, ref: ref}, true
}

// Len returns the number of classes.
func (t *ClassTable) Len() int { return t.mapping().Len() }

// Cap returns the number of slots.
func (t *ClassTable) Cap() int { return t.mapping().Cap() }

// MaxProbe returns the largest probe distance of any class.
func (t *ClassTable) MaxProbe() int { return int(t.mapping().MaxDistance()) }

// All yields every class in slot order. The table must not change while
// iterating.
func (t *ClassTable) All() iter.Seq[Class] {
	return func(yield func(Class) bool) {
		for ref := range t.mapping().All() {
			if !yield(Class{sp: t.sp, ref: ref}) {
				return
			}
		}
	}
}
