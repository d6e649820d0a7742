package arena

import (
	"unsafe"

	"github.com/hupe1980/glr/internal/mmap"
)

// Region is a reserved range with a committed prefix, as handed out by a Pager.
type Region interface {
	Base() uintptr
	Size() int
	Committed() int
	Commit(n int) error
	Bytes() []byte
	Close() error
}

// Pager reserves address space. base may be zero to let the provider choose.
type Pager func(base uintptr, size int, prot mmap.Prot) (Region, error)

// OSPager reserves pages from the operating system.
func OSPager(base uintptr, size int, prot mmap.Prot) (Region, error) {
	return mmap.Reserve(base, size, prot)
}

// HeapPager backs ranges with a Go heap slice. It ignores base and prot and is
// meant for platforms without reservation support and for tests.
func HeapPager(_ uintptr, size int, _ mmap.Prot) (Region, error) {
	if size <= 0 {
		return nil, mmap.ErrInvalidSize
	}
	// uint64 backing keeps the start 8-byte aligned for typed records.
	words := make([]uint64, (size+7)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)
	return &heapRegion{mem: mem[:size:size], words: words}, nil
}

type heapRegion struct {
	mem       []byte
	words     []uint64 // keeps the backing array reachable
	committed int
}

func (r *heapRegion) Base() uintptr  { return uintptr(unsafe.Pointer(unsafe.SliceData(r.mem))) }
func (r *heapRegion) Size() int      { return len(r.mem) }
func (r *heapRegion) Committed() int { return r.committed }

func (r *heapRegion) Commit(n int) error {
	if r.mem == nil {
		return mmap.ErrClosed
	}
	if n > len(r.mem)-r.committed {
		return mmap.ErrExhausted
	}
	r.committed += n
	return nil
}

func (r *heapRegion) Bytes() []byte {
	return r.mem[:r.committed:r.committed]
}

func (r *heapRegion) Close() error {
	r.mem, r.words = nil, nil
	return nil
}
