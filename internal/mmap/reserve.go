package mmap

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Reservation is a range of address space with a committed prefix.
//
// The base address never changes. Only the committed prefix may be touched;
// the rest of the range is inaccessible until committed.
type Reservation struct {
	mem       []byte // the whole reserved range
	committed int
	prot      Prot
	closed    atomic.Bool
}

// Reserve claims size bytes (rounded up to the page size) of address space.
//
// If base is non-zero the range must start exactly there; ErrAddressInUse is
// returned when the OS places it elsewhere or the range is already mapped.
// A zero base lets the OS choose.
func Reserve(base uintptr, size int, prot Prot) (*Reservation, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if base%uintptr(PageSize()) != 0 {
		return nil, fmt.Errorf("mmap: base %#x is not page aligned", base)
	}
	size = RoundUp(size)

	mem, err := osReserve(base, size)
	if err != nil {
		return nil, err
	}
	return &Reservation{mem: mem, prot: prot}, nil
}

// Base returns the first address of the range.
func (r *Reservation) Base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.mem)))
}

// Size returns the reserved size in bytes.
func (r *Reservation) Size() int {
	return len(r.mem)
}

// Committed returns the number of accessible bytes from Base.
func (r *Reservation) Committed() int {
	return r.committed
}

// Prot returns the permissions committed pages receive.
func (r *Reservation) Prot() Prot {
	return r.prot
}

// Commit makes n more bytes (rounded up to the page size) accessible.
func (r *Reservation) Commit(n int) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if n <= 0 {
		return nil
	}
	n = RoundUp(n)
	if n > len(r.mem)-r.committed {
		return ErrExhausted
	}
	if err := osCommit(r.mem[r.committed:r.committed+n], r.prot); err != nil {
		return fmt.Errorf("mmap: commit %d bytes at %#x: %w", n, r.Base()+uintptr(r.committed), err)
	}
	r.committed += n
	return nil
}

// Bytes returns the committed prefix.
// The slice is valid until Close is called.
func (r *Reservation) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.mem[:r.committed:r.committed]
}

// Close releases the whole range. It is idempotent.
func (r *Reservation) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return osRelease(r.mem)
}
