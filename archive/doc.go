// Package archive bundles many class files into one compressed blob.
//
// Layout (little-endian):
//
//	magic "GLRA" | version u8 | count u32 | entries...
//
//	entry: name_len u16 | name | codec u8 | raw_len u32 | stored_len u32 | crc32c u32 | data
//
// The checksum covers the uncompressed class file. Entries are compressed one
// by one so a single class can be opened without inflating the rest.
package archive
