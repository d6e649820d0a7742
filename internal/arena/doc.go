// Package arena provides the append-only memory ranges the class loader
// stores its runtime structures in.
//
// An Arena owns one reservation of virtual address space anchored at a fixed
// base address. Allocations bump a cursor through it; physical pages are
// committed lazily as the cursor advances, up to the reservation ceiling.
// Nothing is freed individually; Close releases the whole range.
//
// # Handles
//
// Allocations are addressed by Ref, a byte offset from the base. Records stored
// in an arena link to each other with Refs rather than Go pointers, so arena
// memory never holds references the garbage collector would need to trace.
// Typed allocation therefore only accepts pointer-free types.
//
// # Safety
//
// An Arena is not safe for concurrent use. Callers serialize access.
package arena
