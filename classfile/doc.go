// Package classfile decodes and encodes the "$GLR" class-file format.
//
// A decoded class lives entirely in arena memory: the constant pool, the class
// record, its field and method records and their symbol tables are bump
// allocated from the metadata arena of a Space, and the bytecode is copied into
// its executable code arena. Records link to each other through arena.Ref
// offsets, never Go pointers, so nothing the decoder produces is visible to the
// garbage collector.
//
// Class, ClassFile, Field, Method, Const and ConstPool are small comparable
// views over those records. They are valid until the arenas of their Space are
// closed.
//
// Layout of a class file (little-endian):
//
//	magic "$GLR" | kind u8 | access u8 | pool_count u16 | constants...
//	| bytecode_size u32 | field_count u16 | fields... | method_count u16 | methods...
//	| bytecode
//
// Constants and method code positions are tagged numerics: a tag byte whose
// bits 7..5 select the width (u8, u16, u32, u64, i32, i64, f32, f64) followed by
// the little-endian value. Bit 0 of the tag marks a string constant, in which
// case the value is a byte length and that many bytes follow.
package classfile
