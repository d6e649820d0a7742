package hash

import (
	stdfnv "hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFNV1a32(t *testing.T) {
	tests := []string{"", "a", "Point", "Module.main", "$GLR"}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			ref := stdfnv.New32a()
			_, _ = ref.Write([]byte(key))

			assert.Equal(t, ref.Sum32(), FNV1a32([]byte(key)))
			assert.Equal(t, ref.Sum32(), FNV1a32String(key))
		})
	}

	assert.Equal(t, uint32(0x811c9dc5), FNV1a32(nil))
}

func TestFNV1a32_NoAllocs(t *testing.T) {
	key := []byte("pkg.sub.SomeLongerClassName")
	name := string(key)
	allocs := testing.AllocsPerRun(100, func() {
		_ = FNV1a32(key)
		_ = FNV1a32String(name)
	})
	assert.Zero(t, allocs)
}

func TestCRC32C(t *testing.T) {
	data := []byte("123456789")
	assert.Equal(t, uint32(0xe3069283), CRC32C(data))
	assert.Zero(t, CRC32C(nil))
}
