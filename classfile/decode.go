package classfile

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/bytereader"
	"github.com/hupe1980/glr/internal/conv"
)

const (
	// Magic is the signature every class file starts with.
	Magic = "$GLR"
	// Ext is the file extension of a class file in a class repository.
	Ext = ".glr"
)

// Limits bounds what Decode accepts.
type Limits struct {
	// MaxCodeSize is the largest accepted bytecode_size.
	MaxCodeSize uint32
	// MaxEnumDepth is the deepest accepted enumerant nesting.
	MaxEnumDepth int
}

// DefaultLimits returns the limits used when a Limits field is zero.
func DefaultLimits() Limits {
	return Limits{
		MaxCodeSize:  16 << 20,
		MaxEnumDepth: 32,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxCodeSize == 0 {
		l.MaxCodeSize = d.MaxCodeSize
	}
	if l.MaxEnumDepth <= 0 {
		l.MaxEnumDepth = d.MaxEnumDepth
	}
	return l
}

// Decode parses one class file into sp.
//
// Decoding is a single forward pass. The first problem aborts it with a
// *DecodeError; memory already taken from the arenas is not returned. The magic
// is checked before anything is allocated.
func Decode(sp *Space, data []byte, lim Limits) (Class, error) {
	if sp == nil || sp.Meta == nil || sp.Code == nil {
		return Class{}, errors.New("classfile: incomplete space")
	}
	d := &decoder{
		sp:  sp,
		r:   bytereader.New(data),
		lim: lim.withDefaults(),
	}
	ref, err := d.class()
	if err != nil {
		return Class{}, err
	}
	return Class{sp: sp, ref: ref}, nil
}

type decoder struct {
	sp  *Space
	r   *bytereader.Reader
	lim Limits

	cls    *classRecord
	clsRef arena.Ref
}

func (d *decoder) fail(err error, off int, format string, args ...any) error {
	de := &DecodeError{Err: err, Offset: off}
	if format != "" {
		de.Detail = fmt.Sprintf(format, args...)
	}
	return de
}

func (d *decoder) class() (arena.Ref, error) {
	magic, err := d.r.Bytes(len(Magic))
	if err != nil || string(magic) != Magic {
		return 0, d.fail(ErrBadClassMagic, 0, "")
	}

	off := d.r.Offset()
	k, err := d.r.U8()
	if err != nil {
		return 0, d.fail(ErrBadClassType, off, "truncated header")
	}
	kind := Kind(k)
	if !kind.Valid() {
		return 0, d.fail(ErrBadClassType, off, "kind %d", k)
	}

	off = d.r.Offset()
	a, err := d.r.U8()
	if err != nil {
		return 0, d.fail(ErrBadAccessModifier, off, "truncated header")
	}
	access := Access(a)
	if err := access.Validate(); err != nil {
		return 0, d.fail(ErrBadAccessModifier, off, "%#02x", a)
	}

	pool, n, err := d.pool()
	if err != nil {
		return 0, err
	}
	ref, cls, err := arena.Alloc(d.sp.Meta, classRecord{
		Kind:    kind,
		Access:  access,
		Pool:    pool,
		PoolLen: n,
	})
	if err != nil {
		return 0, d.fail(err, d.r.Offset(), "class record")
	}
	d.cls, d.clsRef = cls, ref

	if name, ok := poolString(d.sp.Meta, cls, 0); !ok || len(name) == 0 {
		return 0, d.fail(ErrBadClassName, len(Magic)+4, "constant 0 must be a non-empty string")
	}

	off = d.r.Offset()
	codeSize, err := d.r.U32()
	if err != nil {
		return 0, d.fail(ErrBadCodeSize, off, "truncated")
	}
	if codeSize > d.lim.MaxCodeSize {
		return 0, d.fail(ErrBadCodeSize, off, "%d exceeds limit %d", codeSize, d.lim.MaxCodeSize)
	}
	cls.CodeLen = codeSize

	if err := d.fields(); err != nil {
		return 0, err
	}
	if err := d.methods(); err != nil {
		return 0, err
	}

	off = d.r.Offset()
	code, err := d.r.Bytes(int(codeSize))
	if err != nil {
		return 0, d.fail(ErrBadCodeData, off, "want %d bytes, have %d", codeSize, d.r.Len())
	}
	if d.r.Len() != 0 {
		return 0, d.fail(ErrBadCodeData, d.r.Offset(), "%d trailing bytes", d.r.Len())
	}
	if codeSize > 0 {
		cref, dst, err := d.sp.Code.AllocBytes(int(codeSize))
		if err != nil {
			return 0, d.fail(err, off, "bytecode")
		}
		copy(dst, code)
		cls.Code = cref
	}
	return ref, nil
}

func (d *decoder) pool() (arena.Ref, uint32, error) {
	off := d.r.Offset()
	count, err := d.r.U16()
	if err != nil {
		return 0, 0, d.fail(ErrBadConstSize, off, "truncated count")
	}
	if count == 0 {
		return 0, 0, d.fail(ErrBadConstSize, d.r.Offset(), "empty pool")
	}
	ref, recs, err := arena.AllocMany[constRecord](d.sp.Meta, int(count))
	if err != nil {
		return 0, 0, d.fail(err, d.r.Offset(), "constant pool")
	}
	for i := range recs {
		if err := d.constant(&recs[i]); err != nil {
			return 0, 0, err
		}
	}
	return ref, uint32(count), nil
}

// tagged reads a tag byte and the numeric value it selects. The returned error
// is bytereader.ErrExhausted or ErrBadConstType; callers attach the offset.
func (d *decoder) tagged() (tag uint8, kind ConstKind, bits uint64, err error) {
	tag, err = d.r.U8()
	if err != nil {
		return 0, 0, 0, err
	}
	if tag&tagReserved != 0 {
		return tag, 0, 0, ErrBadConstType
	}
	w := tag >> tagShift
	switch w {
	case widthU8:
		bits, err = readBits(d.r, func(v uint8) uint64 { return uint64(v) })
	case widthU16:
		bits, err = readBits(d.r, func(v uint16) uint64 { return uint64(v) })
	case widthU32:
		bits, err = readBits(d.r, func(v uint32) uint64 { return uint64(v) })
	case widthU64:
		bits, err = readBits(d.r, func(v uint64) uint64 { return v })
	case widthI32:
		bits, err = readBits(d.r, func(v int32) uint64 { return uint64(int64(v)) })
	case widthI64:
		bits, err = readBits(d.r, func(v int64) uint64 { return uint64(v) })
	case widthF32:
		bits, err = readBits(d.r, func(v float32) uint64 { return math.Float64bits(float64(v)) })
	case widthF64:
		bits, err = readBits(d.r, math.Float64bits)
	}
	if err != nil {
		return tag, 0, 0, err
	}
	return tag, widthKind(w), bits, nil
}

func readBits[T bytereader.Fixed](r *bytereader.Reader, widen func(T) uint64) (uint64, error) {
	v, err := bytereader.Read[T](r)
	if err != nil {
		return 0, err
	}
	return widen(v), nil
}

func (d *decoder) constant(rec *constRecord) error {
	off := d.r.Offset()
	tag, kind, bits, err := d.tagged()
	switch {
	case errors.Is(err, ErrBadConstType):
		return d.fail(ErrBadConstType, off, "tag %#02x", tag)
	case err != nil:
		return d.fail(ErrBadConstSize, off, "truncated constant")
	}
	rec.Width = tag >> tagShift

	if tag&tagString == 0 {
		rec.Kind, rec.Bits = kind, bits
		return nil
	}

	switch kind {
	case ConstFloat:
		return d.fail(ErrBadConstType, off, "float string length")
	case ConstInt:
		if int64(bits) < 0 {
			return d.fail(ErrBadConstData, off, "negative string length %d", int64(bits))
		}
	}
	n, err := conv.To[uint32](bits)
	if err != nil || uint64(n) > uint64(d.r.Len()) {
		return d.fail(ErrBadConstData, off, "string length %d, %d bytes left", bits, d.r.Len())
	}
	b, _ := d.r.Bytes(int(n))

	rec.Kind, rec.Len = ConstStr, n
	if n == 0 {
		return nil
	}
	ref, _, err := d.sp.Meta.CopyBytes(b)
	if err != nil {
		return d.fail(err, off, "string constant")
	}
	rec.Bits = uint64(ref)
	return nil
}

// name checks that idx refers to a string constant and returns it.
func (d *decoder) name(idx uint16, off int) ([]byte, error) {
	if uint32(idx) >= d.cls.PoolLen {
		return nil, d.fail(ErrBadConstIndex, off, "index %d of %d", idx, d.cls.PoolLen)
	}
	b, ok := poolString(d.sp.Meta, d.cls, idx)
	if !ok {
		return nil, d.fail(ErrBadConstIndex, off, "constant %d is not a string", idx)
	}
	return b, nil
}

func (d *decoder) fields() error {
	off := d.r.Offset()
	count, err := d.r.U16()
	if err != nil {
		return d.fail(ErrBadFieldSize, off, "truncated count")
	}
	if count == 0 {
		return nil
	}
	m := fieldTable(d.sp.Meta, d.cls)
	if err := m.Init(int(count)); err != nil {
		return d.fail(err, off, "field table")
	}
	for range count {
		off := d.r.Offset()
		ref, err := d.field()
		if err != nil {
			return err
		}
		f := arena.Get[fieldRecord](d.sp.Meta, ref)
		key := f.Key(d.sp.Meta)
		if _, _, dup := m.Find(key); dup {
			return d.fail(ErrDuplicateMember, off, "field %q", key)
		}
		if _, err := m.InsertOrGrow(ref); err != nil {
			return d.fail(err, off, "field %q", key)
		}
	}
	return nil
}

func (d *decoder) field() (arena.Ref, error) {
	if d.cls.Kind == Enum {
		return d.enum(0)
	}

	off := d.r.Offset()
	rec := fieldRecord{Kind: d.cls.Kind, Owner: d.clsRef}
	first, err := d.r.U16()
	if err != nil {
		return 0, d.fail(ErrBadFieldSize, off, "truncated field")
	}
	rec.Name = first
	if d.cls.Kind == Struct {
		if rec.Type, err = d.r.U16(); err != nil {
			return 0, d.fail(ErrBadFieldSize, off, "truncated field")
		}
		if uint32(rec.Type) >= d.cls.PoolLen {
			return 0, d.fail(ErrBadConstIndex, off, "type index %d of %d", rec.Type, d.cls.PoolLen)
		}
	}
	if _, err := d.name(rec.Name, off); err != nil {
		return 0, err
	}
	ref, _, err := arena.Alloc(d.sp.Meta, rec)
	if err != nil {
		return 0, d.fail(err, off, "field record")
	}
	return ref, nil
}

// enum decodes an enum field and, recursively, its enumerants. depth is 0 for
// a top-level field.
func (d *decoder) enum(depth int) (arena.Ref, error) {
	off := d.r.Offset()
	truncated := ErrBadFieldSize
	if depth > 0 {
		truncated = ErrBadEnumField
	}
	name, err := d.r.U16()
	if err != nil {
		return 0, d.fail(truncated, off, "truncated enum field")
	}
	count, err := d.r.U16()
	if err != nil {
		return 0, d.fail(ErrBadEnumSize, d.r.Offset(), "truncated enumerant count")
	}
	if _, err := d.name(name, off); err != nil {
		return 0, err
	}
	if count > 0 && depth >= d.lim.MaxEnumDepth {
		return 0, d.fail(ErrBadEnumField, off, "nesting deeper than %d", d.lim.MaxEnumDepth)
	}

	ref, rec, err := arena.Alloc(d.sp.Meta, fieldRecord{
		Kind:  Enum,
		Owner: d.clsRef,
		Name:  name,
		Count: count,
	})
	if err != nil {
		return 0, d.fail(err, off, "enum field")
	}

	var prev *fieldRecord
	seen := make(map[string]struct{}, count)
	for range count {
		coff := d.r.Offset()
		child, err := d.enum(depth + 1)
		if err != nil {
			return 0, err
		}
		c := arena.Get[fieldRecord](d.sp.Meta, child)
		key := string(c.Key(d.sp.Meta))
		if _, dup := seen[key]; dup {
			return 0, d.fail(ErrDuplicateMember, coff, "enumerant %q", key)
		}
		seen[key] = struct{}{}
		if prev == nil {
			rec.Head = child
		} else {
			prev.Next = child
		}
		prev = c
	}
	return ref, nil
}

func (d *decoder) methods() error {
	off := d.r.Offset()
	count, err := d.r.U16()
	if err != nil {
		return d.fail(ErrBadMethodSize, off, "truncated count")
	}
	if count == 0 {
		return nil
	}
	m := methodTable(d.sp.Meta, d.cls)
	if err := m.Init(int(count)); err != nil {
		return d.fail(err, off, "method table")
	}
	for range count {
		off := d.r.Offset()
		ref, err := d.method()
		if err != nil {
			return err
		}
		rec := arena.Get[methodRecord](d.sp.Meta, ref)
		key := rec.Key(d.sp.Meta)
		if _, _, dup := m.Find(key); dup {
			return d.fail(ErrDuplicateMember, off, "method %q", key)
		}
		if _, err := m.InsertOrGrow(ref); err != nil {
			return d.fail(err, off, "method %q", key)
		}
	}
	return nil
}

func (d *decoder) method() (arena.Ref, error) {
	off := d.r.Offset()
	name, err := d.r.U16()
	if err != nil {
		return 0, d.fail(ErrBadMethodSize, off, "truncated method")
	}
	aoff := d.r.Offset()
	a, err := d.r.U8()
	if err != nil {
		return 0, d.fail(ErrBadMethodSize, off, "truncated method")
	}
	if _, err := d.name(name, off); err != nil {
		return 0, err
	}
	access := Access(a)
	if err := access.Validate(); err != nil {
		return 0, d.fail(ErrBadAccessModifier, aoff, "%#02x", a)
	}

	poff := d.r.Offset()
	tag, kind, bits, err := d.tagged()
	switch {
	case errors.Is(err, ErrBadConstType):
		return 0, d.fail(ErrBadCodePos, poff, "tag %#02x", tag)
	case err != nil:
		return 0, d.fail(ErrBadMethodSize, poff, "truncated code position")
	case tag&tagString != 0 || kind == ConstFloat:
		return 0, d.fail(ErrBadCodePos, poff, "tag %#02x is not an integer", tag)
	case kind == ConstInt && int64(bits) < 0:
		return 0, d.fail(ErrBadCodePos, poff, "negative position %d", int64(bits))
	case bits > uint64(d.cls.CodeLen):
		return 0, d.fail(ErrBadCodePos, poff, "position %d past bytecode size %d", bits, d.cls.CodeLen)
	}

	ref, _, err := arena.Alloc(d.sp.Meta, methodRecord{
		Owner:  d.clsRef,
		Name:   name,
		Access: access,
		Code:   uint32(bits),
	})
	if err != nil {
		return 0, d.fail(err, off, "method record")
	}
	return ref, nil
}
