// Package hash provides the hash functions the runtime core relies on.
//
// # FNV-1a
//
// Symbol mappings place entries by the 32-bit FNV-1a hash of their name:
//
//	slot := hash.FNV1a32(name) & (capacity - 1)
//
// FNV-1a is computed inline over the key bytes, with no allocation.
//
// # CRC32-Castagnoli (CRC32C)
//
// Class archives checksum every entry with CRC32C, which is hardware
// accelerated on x86 (SSE4.2) and ARM (CRC extension).
package hash
