// Package symtab implements the name-keyed symbol mappings used for classes,
// fields and methods.
//
// A Mapping is an open-addressing hash table with Robin-Hood displacement: an
// inserting entry takes over any slot whose occupant sits closer to its own
// ideal slot, and the displaced occupant continues the walk. This keeps probe
// lengths close to the mean even when names collide deliberately, which
// matters because names come from untrusted class files.
//
// Slots and entries both live in arenas. The table is one array of arena.Ref
// handles, and the table header (Header) is plain data that can be embedded
// in another arena record. Growth allocates a new array and leaves the old
// one behind, since arenas never free.
//
// A Mapping is not safe for concurrent use.
package symtab
