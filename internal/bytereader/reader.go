// Package bytereader provides the bounds-checked, forward-only cursor the
// class-file decoder reads through.
package bytereader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrExhausted is returned when fewer bytes remain than a read needs.
var ErrExhausted = errors.New("bytereader: input exhausted")

// Fixed is the set of fixed-width values Read can decode.
type Fixed interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Reader is a cursor over an immutable byte slice. Integers are little-endian.
// A failed read leaves the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

// New returns a reader positioned at the start of buf.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.off {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrExhausted, n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Bytes returns the next n bytes. The slice aliases the input.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I32 reads a little-endian two's-complement int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// I64 reads a little-endian two's-complement int64.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// F64 reads a little-endian IEEE-754 float64.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// Read decodes the next value of type T.
func Read[T Fixed](r *Reader) (T, error) {
	var v T
	var err error
	switch p := any(&v).(type) {
	case *uint8:
		*p, err = r.U8()
	case *int8:
		var u uint8
		u, err = r.U8()
		*p = int8(u)
	case *uint16:
		*p, err = r.U16()
	case *int16:
		var u uint16
		u, err = r.U16()
		*p = int16(u)
	case *uint32:
		*p, err = r.U32()
	case *int32:
		*p, err = r.I32()
	case *uint64:
		*p, err = r.U64()
	case *int64:
		*p, err = r.I64()
	case *float32:
		*p, err = r.F32()
	case *float64:
		*p, err = r.F64()
	default:
		// Named types: decode by size through binary.
		b, terr := r.take(binary.Size(v))
		if terr != nil {
			return v, terr
		}
		_, err = binary.Decode(b, binary.LittleEndian, &v)
	}
	return v, err
}
