package symtab

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/hash"
)

// DefaultCapacity is the initial slot count of a mapping.
const DefaultCapacity = 8

const maxCapacity = 1 << 30

var (
	// ErrFull is returned by Insert when every slot is occupied.
	ErrFull = errors.New("symtab: mapping full")
	// ErrOutOfMemory is returned when the table arena cannot hold a larger table.
	ErrOutOfMemory = errors.New("symtab: out of memory")
	// ErrUninitialized is returned when inserting before Init.
	ErrUninitialized = errors.New("symtab: mapping not initialized")
	// ErrInvalidEntry is returned for a ref that does not resolve to an entry.
	ErrInvalidEntry = errors.New("symtab: invalid entry")
)

// Header is the persistent state of a mapping. It holds no Go pointers and
// can be stored inside arena records.
type Header struct {
	Table arena.Ref
	Cap   uint32
	Len   uint32
}

// Entry is the constraint on mapped records: a pointer to an arena-resident T
// that knows its key and carries its own probe bookkeeping.
type Entry[T any] interface {
	*T
	// Key returns the lookup name. entries is the arena the record lives in.
	Key(entries *arena.Arena) []byte
	// Distance is the number of slots the entry sits past its ideal slot.
	Distance() uint32
	SetDistance(d uint32)
	// Mapped reports whether the entry is currently placed in a table.
	Mapped() bool
	SetMapped(m bool)
}

// Mapping is a view over a Header whose entries live in one arena and whose
// slot array lives in another (possibly the same) arena.
type Mapping[T any, P Entry[T]] struct {
	entries *arena.Arena
	table   *arena.Arena
	hdr     *Header
}

// New returns a mapping view. hdr must outlive the view.
func New[T any, P Entry[T]](entries, table *arena.Arena, hdr *Header) Mapping[T, P] {
	return Mapping[T, P]{entries: entries, table: table, hdr: hdr}
}

// Init allocates the slot array. capacity is rounded up to a power of two;
// values below one use DefaultCapacity.
func (m Mapping[T, P]) Init(capacity int) error {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if capacity > maxCapacity {
		return fmt.Errorf("%w: capacity %d", ErrOutOfMemory, capacity)
	}
	c := 1
	for c < capacity {
		c <<= 1
	}
	return m.allocSlots(c)
}

func (m Mapping[T, P]) allocSlots(c int) error {
	ref, _, err := arena.AllocMany[arena.Ref](m.table, c)
	if err != nil {
		return fmt.Errorf("%w: %d slots: %w", ErrOutOfMemory, c, err)
	}
	m.hdr.Table = ref
	m.hdr.Cap = uint32(c)
	m.hdr.Len = 0
	return nil
}

// Len returns the number of entries.
func (m Mapping[T, P]) Len() int { return int(m.hdr.Len) }

// Cap returns the number of slots.
func (m Mapping[T, P]) Cap() int { return int(m.hdr.Cap) }

func (m Mapping[T, P]) slots() []arena.Ref {
	return arena.Slice[arena.Ref](m.table, m.hdr.Table, int(m.hdr.Cap))
}

func (m Mapping[T, P]) entry(ref arena.Ref) P {
	return P(arena.Get[T](m.entries, ref))
}

// Insert places the entry at ref.
//
// An entry that is already mapped is left alone. ErrFull is returned, with the
// table unchanged, when no slot is free.
func (m Mapping[T, P]) Insert(ref arena.Ref) error {
	raw := arena.Get[T](m.entries, ref)
	if raw == nil {
		return fmt.Errorf("%w: ref %#x", ErrInvalidEntry, uint64(ref))
	}
	e := P(raw)
	if e.Mapped() {
		return nil
	}
	slots := m.slots()
	if len(slots) == 0 {
		return ErrUninitialized
	}
	if m.hdr.Len >= m.hdr.Cap {
		return ErrFull
	}

	mask := uint32(len(slots) - 1)
	idx := hash.FNV1a32(e.Key(m.entries)) & mask
	cur, curE := ref, e
	curE.SetDistance(0)

	// A free slot exists, so the walk ends within one cycle.
	for range len(slots) {
		occ := slots[idx]
		if occ == 0 {
			slots[idx] = cur
			curE.SetMapped(true)
			m.hdr.Len++
			return nil
		}
		if occE := m.entry(occ); occE.Distance() < curE.Distance() {
			slots[idx] = cur
			curE.SetMapped(true)
			occE.SetMapped(false)
			cur, curE = occ, occE
		}
		curE.SetDistance(curE.Distance() + 1)
		idx = (idx + 1) & mask
	}
	return ErrFull
}

// Grow doubles the slot count and re-places every entry.
func (m Mapping[T, P]) Grow() error {
	old := m.slots()
	if len(old) == 0 {
		return ErrUninitialized
	}
	if len(old) >= maxCapacity || uint64(len(old))*2 > math.MaxUint32 {
		return fmt.Errorf("%w: capacity %d", ErrOutOfMemory, len(old)*2)
	}
	// The old array stays valid after the allocation: arena memory never moves.
	if err := m.allocSlots(len(old) * 2); err != nil {
		return err
	}
	for _, ref := range old {
		if ref == 0 {
			continue
		}
		m.entry(ref).SetMapped(false)
		if err := m.Insert(ref); err != nil {
			return err
		}
	}
	return nil
}

// InsertOrGrow inserts ref, growing the table once and retrying if it is full.
// It reports whether the table grew.
func (m Mapping[T, P]) InsertOrGrow(ref arena.Ref) (bool, error) {
	err := m.Insert(ref)
	if !errors.Is(err, ErrFull) {
		return false, err
	}
	if err := m.Grow(); err != nil {
		return false, err
	}
	return true, m.Insert(ref)
}

// Find returns the entry whose key equals key.
func (m Mapping[T, P]) Find(key []byte) (arena.Ref, P, bool) {
	return m.find(hash.FNV1a32(key), func(k []byte) bool { return string(k) == string(key) })
}

// FindString is Find for a string key.
func (m Mapping[T, P]) FindString(key string) (arena.Ref, P, bool) {
	return m.find(hash.FNV1a32String(key), func(k []byte) bool { return string(k) == key })
}

// find walks from the ideal slot until a match, an empty slot or a full cycle.
func (m Mapping[T, P]) find(h uint32, eq func([]byte) bool) (arena.Ref, P, bool) {
	slots := m.slots()
	if len(slots) == 0 {
		return 0, nil, false
	}
	mask := uint32(len(slots) - 1)
	start := h & mask
	idx := start
	for {
		ref := slots[idx]
		if ref == 0 {
			return 0, nil, false
		}
		if e := m.entry(ref); eq(e.Key(m.entries)) {
			return ref, e, true
		}
		idx = (idx + 1) & mask
		if idx == start {
			return 0, nil, false
		}
	}
}

// All yields every entry in slot order. The mapping must not be modified
// while iterating.
func (m Mapping[T, P]) All() iter.Seq2[arena.Ref, P] {
	return func(yield func(arena.Ref, P) bool) {
		for _, ref := range m.slots() {
			if ref == 0 {
				continue
			}
			if !yield(ref, m.entry(ref)) {
				return
			}
		}
	}
}

// MaxDistance returns the largest probe distance in the table.
func (m Mapping[T, P]) MaxDistance() uint32 {
	var d uint32
	for _, e := range m.All() {
		d = max(d, e.Distance())
	}
	return d
}
