package arena

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/glr/internal/mmap"
)

var (
	// ErrOutOfMemory is returned when an allocation would pass the reservation
	// ceiling or backing pages cannot be committed.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrClosed is returned when allocating from a closed arena.
	ErrClosed = errors.New("arena: closed")
	// ErrPointerType is returned by typed allocation of a type holding Go pointers.
	ErrPointerType = errors.New("arena: type contains pointers")
	// ErrInvalidConfig is returned for unusable arena configurations.
	ErrInvalidConfig = errors.New("arena: invalid config")
)

const (
	// DefaultAlignment is the minimum alignment of every allocation.
	DefaultAlignment = 8
	// DefaultInitial is the working set committed at creation.
	DefaultInitial = 64 * 1024
)

// Ref is the offset of an allocation from the arena base. The zero Ref is nil;
// offset 0 is never handed out.
type Ref uint64

// IsNil reports whether r is the nil handle.
func (r Ref) IsNil() bool { return r == 0 }

// MemoryAcquirer is charged for every committed byte.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Config describes one memory range.
type Config struct {
	// Name identifies the range in errors and logs.
	Name string
	// Base is the fixed first address. Zero lets the OS choose.
	Base uint64
	// Reserve is the allocation ceiling in bytes.
	Reserve int
	// Initial is committed up front (DefaultInitial if zero).
	Initial int
	// Exec commits pages read/write/exec.
	Exec bool
}

// Stats tracks arena memory usage.
type Stats struct {
	Reserved  uint64 // allocation ceiling
	Committed uint64 // bytes backed by pages
	Used      uint64 // cursor position
	Wasted    uint64 // alignment padding
	Allocs    uint64 // number of allocations
	Grows     uint64 // number of commit extensions after creation
}

// Arena is a bump allocator over a fixed-base reservation.
//
// Invariant: 0 <= cursor <= committed <= ceiling, and the base never changes.
type Arena struct {
	cfg      Config
	region   Region
	mem      []byte // committed prefix
	ceiling  int
	cursor   int
	acquirer MemoryAcquirer
	pager    Pager
	stats    Stats
	closed   bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges committed pages against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithPager replaces the OS page provider.
func WithPager(p Pager) Option {
	return func(a *Arena) {
		if p != nil {
			a.pager = p
		}
	}
}

// At reserves the range described by cfg and commits its initial working set.
func At(cfg Config, opts ...Option) (*Arena, error) {
	if cfg.Reserve <= DefaultAlignment {
		return nil, fmt.Errorf("%w: %q reserve %d", ErrInvalidConfig, cfg.Name, cfg.Reserve)
	}
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitial
	}
	if cfg.Initial > cfg.Reserve {
		cfg.Initial = cfg.Reserve
	}

	a := &Arena{
		cfg:     cfg,
		ceiling: cfg.Reserve,
		pager:   OSPager,
	}
	for _, opt := range opts {
		opt(a)
	}

	base := uintptr(cfg.Base)
	if uint64(base) != cfg.Base {
		return nil, fmt.Errorf("%w: %q base %#x does not fit the address space", ErrInvalidConfig, cfg.Name, cfg.Base)
	}

	prot := mmap.ProtRead | mmap.ProtWrite
	if cfg.Exec {
		prot |= mmap.ProtExec
	}
	region, err := a.pager(base, cfg.Reserve, prot)
	if err != nil {
		return nil, fmt.Errorf("arena %q: reserve %s at %#x: %w", cfg.Name, humanize.IBytes(uint64(cfg.Reserve)), cfg.Base, err)
	}
	a.region = region

	if err := a.commit(cfg.Initial); err != nil {
		_ = region.Close()
		return nil, err
	}

	// Offset 0 stays unused so the zero Ref can mean nil.
	a.cursor = DefaultAlignment
	return a, nil
}

// Name returns the configured name.
func (a *Arena) Name() string { return a.cfg.Name }

// Base returns the first address of the range.
func (a *Arena) Base() uintptr { return a.region.Base() }

// Exec reports whether the range is mapped executable.
func (a *Arena) Exec() bool { return a.cfg.Exec }

// Used returns the cursor position in bytes.
func (a *Arena) Used() int { return a.cursor }

// Committed returns the number of bytes backed by pages.
func (a *Arena) Committed() int { return len(a.mem) }

// Ceiling returns the allocation limit in bytes.
func (a *Arena) Ceiling() int { return a.ceiling }

// Remaining returns the bytes left before the ceiling.
func (a *Arena) Remaining() int { return a.ceiling - a.cursor }

// AllocBytes bump-allocates n zeroed bytes.
// A zero-length allocation returns the nil Ref and a nil slice.
func (a *Arena) AllocBytes(n int) (Ref, []byte, error) {
	return a.alloc(n, DefaultAlignment)
}

// CopyBytes allocates len(src) bytes and copies src into them.
func (a *Arena) CopyBytes(src []byte) (Ref, []byte, error) {
	ref, dst, err := a.alloc(len(src), 1)
	if err != nil {
		return 0, nil, err
	}
	copy(dst, src)
	return ref, dst, nil
}

func (a *Arena) alloc(size, align int) (Ref, []byte, error) {
	if a.closed {
		return 0, nil, ErrClosed
	}
	if size < 0 {
		return 0, nil, fmt.Errorf("%w: negative allocation %d", ErrOutOfMemory, size)
	}
	if size == 0 {
		return 0, nil, nil
	}

	start := alignUp(a.cursor, align)
	if start > a.ceiling || size > a.ceiling-start {
		return 0, nil, fmt.Errorf("%w: %q needs %d bytes, %d left", ErrOutOfMemory, a.cfg.Name, size, a.ceiling-a.cursor)
	}
	end := start + size

	if end > len(a.mem) {
		if err := a.grow(end); err != nil {
			return 0, nil, err
		}
	}

	a.stats.Wasted += uint64(start - a.cursor)
	a.stats.Allocs++
	a.cursor = end
	return Ref(start), a.mem[start:end:end], nil
}

// grow commits enough pages to cover need, doubling the committed size when
// the reservation allows it.
func (a *Arena) grow(need int) error {
	committed := len(a.mem)
	want := max(need-committed, committed)
	want = min(mmap.RoundUp(want), a.region.Size()-committed)
	if committed+want < need {
		return fmt.Errorf("%w: %q cannot commit past %d bytes", ErrOutOfMemory, a.cfg.Name, a.region.Size())
	}
	if err := a.commit(want); err != nil {
		return err
	}
	a.stats.Grows++
	return nil
}

func (a *Arena) commit(n int) error {
	n = min(mmap.RoundUp(n), a.region.Size()-a.region.Committed())
	if n <= 0 {
		return nil
	}
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(n)); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrOutOfMemory, a.cfg.Name, err)
		}
	}
	if err := a.region.Commit(n); err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(n))
		}
		return fmt.Errorf("%w: %q: %w", ErrOutOfMemory, a.cfg.Name, err)
	}
	a.mem = a.region.Bytes()
	return nil
}

// Bytes returns the n bytes at ref, or nil if the range was never allocated.
func (a *Arena) Bytes(ref Ref, n int) []byte {
	if ref == 0 || n <= 0 || a.closed {
		return nil
	}
	start := int(ref)
	if uint64(ref) > uint64(a.cursor) || n > a.cursor-start {
		return nil
	}
	return a.mem[start : start+n : start+n]
}

// Addr returns the absolute address of ref.
func (a *Arena) Addr(ref Ref) uintptr {
	if ref == 0 {
		return 0
	}
	return a.Base() + uintptr(ref)
}

// Contains reports whether addr lies inside the allocated part of the range.
func (a *Arena) Contains(addr uintptr) bool {
	base := a.Base()
	return addr >= base && addr < base+uintptr(a.cursor)
}

// Stats returns the current usage statistics.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.Reserved = uint64(a.ceiling)
	s.Committed = uint64(len(a.mem))
	s.Used = uint64(a.cursor)
	return s
}

// Close unmaps the range. Every Ref, slice and pointer obtained from the arena
// becomes invalid. It is idempotent.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.acquirer != nil && len(a.mem) > 0 {
		a.acquirer.ReleaseMemory(int64(len(a.mem)))
	}
	a.mem = nil
	return a.region.Close()
}

func (a *Arena) String() string {
	s := a.Stats()
	perm := "rw-"
	if a.cfg.Exec {
		perm = "rwx"
	}
	return fmt.Sprintf("Arena{%s@%#x %s, used: %s, committed: %s, reserved: %s, allocs: %d}",
		a.cfg.Name, a.Base(), perm,
		humanize.IBytes(s.Used),
		humanize.IBytes(s.Committed),
		humanize.IBytes(s.Reserved),
		s.Allocs,
	)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
