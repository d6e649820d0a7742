package hash

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// FNV1a32 returns the 32-bit FNV-1a hash of key. It matches hash/fnv's
// New32a without allocating a hash.Hash32 per lookup.
func FNV1a32(key []byte) uint32 {
	h := uint32(fnvOffset32)
	for _, c := range key {
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// FNV1a32String is FNV1a32 for a string key.
func FNV1a32String(key string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= fnvPrime32
	}
	return h
}
