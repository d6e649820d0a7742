// Package mmap is the narrow OS capability the runtime core consumes for memory.
//
// # Reservations
//
// Reserve claims a contiguous range of virtual address space, optionally at a
// caller-chosen base address, without backing it with physical pages. Commit
// makes further pages of the reservation accessible with the permissions chosen
// at reservation time (read/write, optionally exec). Pages are committed in
// order and never decommitted; Close releases the whole range.
//
//	r, err := mmap.Reserve(0x1000_0000_0000, 1<<30, mmap.ProtRead|mmap.ProtWrite)
//	if err != nil { ... }
//	defer r.Close()
//
//	if err := r.Commit(64 << 10); err != nil { ... }
//	mem := r.Bytes() // committed prefix
//
// # File mappings
//
// Open maps a file read-only. It backs the local class repository so class
// files are decoded straight from the page cache.
//
// # Platform Support
//
//   - Linux: mmap(2) with MAP_FIXED_NOREPLACE for fixed bases, mprotect(2) to commit
//   - Darwin/FreeBSD/OpenBSD: the base is a hint and is verified after mapping
//   - Windows: VirtualAlloc MEM_RESERVE / MEM_COMMIT
//
// Other platforms return ErrUnsupported from Reserve.
package mmap
