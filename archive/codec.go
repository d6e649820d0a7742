package archive

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression algorithm of an entry.
type Codec uint8

const (
	// CodecNone stores the class file as is.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast, good for hot classes).
	CodecLZ4 Codec = 1
	// CodecZstd uses zstd (better ratio, good for cold classes).
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ErrUnknownCodec is returned for an entry with an unsupported codec.
var ErrUnknownCodec = errors.New("archive: unknown codec")

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress returns the stored form of data and the codec actually used.
// When compression saves less than 10% the data is stored uncompressed.
func compress(data []byte, codec Codec) ([]byte, Codec, error) {
	if codec == CodecNone || len(data) == 0 {
		return data, CodecNone, nil
	}

	var out []byte
	switch codec {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n] // n == 0: incompressible
	case CodecZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, CodecNone, nil
	}
	return out, codec, nil
}

// decompress inflates stored into exactly rawLen bytes.
func decompress(stored []byte, codec Codec, rawLen int) ([]byte, error) {
	switch codec {
	case CodecNone:
		if len(stored) != rawLen {
			return nil, fmt.Errorf("%w: stored %d bytes, want %d", ErrCorrupt, len(stored), rawLen)
		}
		return stored, nil

	case CodecLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	case CodecZstd:
		var h zstd.Header
		if err := h.Decode(stored); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawLen) {
			return nil, fmt.Errorf("%w: zstd frame holds %d bytes, want %d", ErrCorrupt, h.FrameContentSize, rawLen)
		}

		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, codec)
	}
}
