package classfile

import (
	"unsafe"

	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/symtab"
)

// Space is the pair of arenas a class is decoded into.
type Space struct {
	// Meta holds constant pools, class, field and method records and the
	// per-class symbol tables.
	Meta *arena.Arena
	// Code holds bytecode. It is normally mapped executable.
	Code *arena.Arena
}

// The records below are stored in arena memory and must stay free of Go
// pointers. Each of the mapped ones implements symtab.Entry.

const constRecordSize = unsafe.Sizeof(constRecord{})

type constRecord struct {
	Bits  uint64 // value bits, or the Ref of the string bytes
	Len   uint32 // string length
	Kind  ConstKind
	Width uint8 // encoded width selector, kept for re-encoding
	_     [2]byte
}

type classRecord struct {
	Pool    arena.Ref
	Code    arena.Ref // in the code arena
	Fields  symtab.Header
	Methods symtab.Header
	PoolLen uint32
	CodeLen uint32
	probe   uint32
	Kind    Kind
	Access  Access
	mapped  bool
}

// Key returns the class name, constant 0.
func (c *classRecord) Key(meta *arena.Arena) []byte {
	b, _ := poolString(meta, c, 0)
	return b
}

func (c *classRecord) Distance() uint32     { return c.probe }
func (c *classRecord) SetDistance(d uint32) { c.probe = d }
func (c *classRecord) Mapped() bool         { return c.mapped }
func (c *classRecord) SetMapped(m bool)     { c.mapped = m }

type fieldRecord struct {
	Owner  arena.Ref // class record
	Next   arena.Ref // next enumerant of the same parent
	Head   arena.Ref // first enumerant
	probe  uint32
	Count  uint16 // number of enumerants
	Name   uint16 // name index; the target index of a module field
	Type   uint16
	Kind   Kind
	mapped bool
}

func (f *fieldRecord) Key(meta *arena.Arena) []byte {
	owner := arena.Get[classRecord](meta, f.Owner)
	if owner == nil {
		return nil
	}
	b, _ := poolString(meta, owner, f.Name)
	return b
}

func (f *fieldRecord) Distance() uint32     { return f.probe }
func (f *fieldRecord) SetDistance(d uint32) { f.probe = d }
func (f *fieldRecord) Mapped() bool         { return f.mapped }
func (f *fieldRecord) SetMapped(m bool)     { f.mapped = m }

type methodRecord struct {
	Owner  arena.Ref
	Code   uint32 // offset into the owner's bytecode
	probe  uint32
	Name   uint16
	Access Access
	mapped bool
}

func (m *methodRecord) Key(meta *arena.Arena) []byte {
	owner := arena.Get[classRecord](meta, m.Owner)
	if owner == nil {
		return nil
	}
	b, _ := poolString(meta, owner, m.Name)
	return b
}

func (m *methodRecord) Distance() uint32     { return m.probe }
func (m *methodRecord) SetDistance(d uint32) { m.probe = d }
func (m *methodRecord) Mapped() bool         { return m.mapped }
func (m *methodRecord) SetMapped(v bool)     { m.mapped = v }

func poolRecords(meta *arena.Arena, c *classRecord) []constRecord {
	return arena.Slice[constRecord](meta, c.Pool, int(c.PoolLen))
}

// poolString returns the bytes of string constant i. ok is false when i is out
// of range or not a string.
func poolString(meta *arena.Arena, c *classRecord, i uint16) (b []byte, ok bool) {
	pool := poolRecords(meta, c)
	if int(i) >= len(pool) || pool[i].Kind != ConstStr {
		return nil, false
	}
	return meta.Bytes(arena.Ref(pool[i].Bits), int(pool[i].Len)), true
}

func fieldTable(meta *arena.Arena, c *classRecord) symtab.Mapping[fieldRecord, *fieldRecord] {
	return symtab.New[fieldRecord, *fieldRecord](meta, meta, &c.Fields)
}

func methodTable(meta *arena.Arena, c *classRecord) symtab.Mapping[methodRecord, *methodRecord] {
	return symtab.New[methodRecord, *methodRecord](meta, meta, &c.Methods)
}
