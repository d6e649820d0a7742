package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classBytes(name string, codeLen int) []byte {
	code := bytes.Repeat([]byte{0x10, 0x20, 0x30, 0x40}, codeLen/4)
	return append([]byte("$GLR\x02\x00\x01\x00\x01"+string(rune(len(name)))+name+"\x00\x00\x00\x00\x00\x00\x00\x00"), code...)
}

func TestArchive_RoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			w := NewWriter(codec)
			want := map[string][]byte{}
			for i := range 5 {
				name := fmt.Sprintf("pkg.C%d", i)
				data := classBytes(name, 4096*(i+1))
				want[name] = data
				require.NoError(t, w.Add(name, data))
			}
			require.NoError(t, w.Add("tiny", []byte{1}))
			want["tiny"] = []byte{1}
			assert.Equal(t, 6, w.Len())

			a, err := Read(w.Bytes())
			require.NoError(t, err)
			assert.Equal(t, 6, a.Len())
			assert.Equal(t, []string{"pkg.C0", "pkg.C1", "pkg.C2", "pkg.C3", "pkg.C4", "tiny"}, a.Names())

			for name, data := range want {
				got, err := a.Open(name)
				require.NoError(t, err)
				assert.Equal(t, data, got)
				assert.True(t, a.Has(name))
			}

			for _, e := range a.Entries() {
				if e.Name == "tiny" {
					// Too small to gain from compression.
					assert.Equal(t, CodecNone, e.Codec)
					continue
				}
				assert.Equal(t, codec, e.Codec)
				if codec != CodecNone {
					assert.Less(t, e.StoredLen, e.RawLen)
				}
			}
		})
	}
}

func TestArchive_Errors(t *testing.T) {
	w := NewWriter(CodecNone)
	require.NoError(t, w.Add("A", []byte("hello")))
	assert.ErrorIs(t, w.Add("A", []byte("again")), ErrDuplicateEntry)
	assert.Error(t, w.Add("", []byte("x")))
	data := w.Bytes()

	a, err := Read(data)
	require.NoError(t, err)
	_, err = a.Open("B")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xff
		a, err := Read(bad)
		require.NoError(t, err)
		_, err = a.Open("A")
		assert.ErrorIs(t, err, ErrChecksum)
	})

	for name, bad := range map[string][]byte{
		"magic":    append([]byte("XLRA"), data[4:]...),
		"version":  append([]byte("GLRA\x09"), data[5:]...),
		"truncate": data[:len(data)-2],
		"trailing": append(bytes.Clone(data), 0),
		"count":    append([]byte("GLRA\x01\xff\xff\xff\xff"), data[9:]...),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Read(bad)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestArchive_WriteTo(t *testing.T) {
	w := NewWriter(CodecZstd)
	require.NoError(t, w.Add("A", classBytes("A", 1024)))

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, w.Bytes(), buf.Bytes())
}

func TestArchive_CorruptCompressedEntry(t *testing.T) {
	w := NewWriter(CodecLZ4)
	require.NoError(t, w.Add("A", classBytes("A", 8192)))
	data := w.Bytes()

	// Claim a larger raw length than the block inflates to.
	a, err := Read(data)
	require.NoError(t, err)
	e := a.entries[0]
	require.Equal(t, CodecLZ4, e.Codec)
	e.RawLen++
	a.entries[0] = e
	_, err = a.Open("A")
	assert.ErrorIs(t, err, ErrCorrupt)
}

// rawEntry encodes a one-entry archive with the given header fields.
func rawEntry(codec Codec, raw, stored uint32, payload []byte) []byte {
	out := append([]byte(Magic), Version)
	out = binary.LittleEndian.AppendUint32(out, 1)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = append(out, 'A', uint8(codec))
	out = binary.LittleEndian.AppendUint32(out, raw)
	out = binary.LittleEndian.AppendUint32(out, stored)
	out = binary.LittleEndian.AppendUint32(out, 0)
	return append(out, payload...)
}

func TestArchive_EntrySizeLimits(t *testing.T) {
	t.Run("huge raw length", func(t *testing.T) {
		data := rawEntry(CodecLZ4, 0xF0000000, 2, []byte{0x10, 0x00})
		require.Less(t, len(data), 32)

		_, err := Read(data)
		assert.ErrorIs(t, err, ErrEntryTooLarge)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("stored entry size mismatch", func(t *testing.T) {
		_, err := Read(rawEntry(CodecNone, 9, 2, []byte{1, 2}))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	w := NewWriter(CodecZstd)
	require.NoError(t, w.Add("A", classBytes("A", 8192)))
	data := w.Bytes()

	t.Run("max entry size option", func(t *testing.T) {
		_, err := Read(data)
		require.NoError(t, err)

		_, err = Read(data, func(o *ReadOptions) { o.MaxEntrySize = 1024 })
		assert.ErrorIs(t, err, ErrEntryTooLarge)
	})

	t.Run("max ratio option", func(t *testing.T) {
		a, err := Read(data)
		require.NoError(t, err)
		e := a.Entries()[0]
		require.Equal(t, CodecZstd, e.Codec)

		ratio := e.RawLen / e.StoredLen
		require.GreaterOrEqual(t, ratio, 2)

		_, err = Read(data, func(o *ReadOptions) { o.MaxRatio = ratio - 1 })
		assert.ErrorIs(t, err, ErrEntryTooLarge)
		_, err = Read(data, func(o *ReadOptions) { o.MaxRatio = ratio + 1 })
		assert.NoError(t, err)
	})

	t.Run("zstd frame size mismatch", func(t *testing.T) {
		a, err := Read(data)
		require.NoError(t, err)
		e := a.entries[0]
		e.RawLen--
		a.entries[0] = e
		_, err = a.Open("A")
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("writer", func(t *testing.T) {
		w := NewWriter(CodecNone)
		err := w.Add("big", make([]byte, DefaultMaxEntrySize+1))
		assert.ErrorIs(t, err, ErrEntryTooLarge)
		assert.Zero(t, w.Len())
	})
}

func TestCodec_String(t *testing.T) {
	assert.Equal(t, "none", CodecNone.String())
	assert.Equal(t, "lz4", CodecLZ4.String())
	assert.Equal(t, "zstd", CodecZstd.String())
	assert.Equal(t, "Codec(9)", Codec(9).String())

	_, _, err := compress([]byte("data"), Codec(9))
	assert.ErrorIs(t, err, ErrUnknownCodec)
	_, err = decompress([]byte("data"), Codec(9), 4)
	assert.ErrorIs(t, err, ErrUnknownCodec)
}
