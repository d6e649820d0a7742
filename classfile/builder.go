package classfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/glr/internal/arena"
)

// Enumerant describes one named value of an enum field and its nested values.
type Enumerant struct {
	Name   uint16
	Values []Enumerant
}

// Builder assembles class-file bytes.
//
//	b := classfile.NewBuilder(classfile.Struct, "Point")
//	b.StructField(b.String("x"), b.String("i64"))
//	b.Method(b.String("len"), classfile.Public, 0)
//	b.Code(code)
//	data, err := b.Bytes()
//
// Constant methods return the pool index of the new constant. Errors are
// collected and reported by Bytes.
type Builder struct {
	kind   Kind
	access Access

	pool    []byte
	nconst  int
	strings map[string]uint16

	fields  []byte
	nfield  int
	methods []byte
	nmethod int
	code    []byte

	err error
}

// NewBuilder starts a class of the given kind. name becomes constant 0.
func NewBuilder(kind Kind, name string) *Builder {
	b := &Builder{
		kind:    kind,
		strings: make(map[string]uint16),
	}
	if !kind.Valid() {
		b.setErr(fmt.Errorf("%w: kind %d", ErrBadClassType, kind))
	}
	b.String(name)
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Access sets the class access flags.
func (b *Builder) Access(a Access) *Builder {
	b.access = a
	return b
}

func (b *Builder) addConst(rec []byte) uint16 {
	if b.nconst >= math.MaxUint16 {
		b.setErr(fmt.Errorf("%w: more than %d constants", ErrBadConstSize, math.MaxUint16))
		return 0
	}
	b.pool = append(b.pool, rec...)
	b.nconst++
	return uint16(b.nconst - 1)
}

// Uint adds an unsigned constant in the narrowest width that holds v.
func (b *Builder) Uint(v uint64) uint16 {
	return b.addConst(appendUint(nil, 0, v))
}

// Int adds a signed constant, 32-bit when v fits.
func (b *Builder) Int(v int64) uint16 {
	return b.addConst(appendInt(nil, v))
}

// Float adds a 64-bit float constant.
func (b *Builder) Float(v float64) uint16 {
	rec := []byte{widthF64 << tagShift}
	return b.addConst(binary.LittleEndian.AppendUint64(rec, math.Float64bits(v)))
}

// String adds a string constant. Equal strings share one index.
func (b *Builder) String(s string) uint16 {
	if i, ok := b.strings[s]; ok {
		return i
	}
	rec := appendUint(nil, tagString, uint64(len(s)))
	i := b.addConst(append(rec, s...))
	b.strings[s] = i
	return i
}

func (b *Builder) requireKind(k Kind, what string) bool {
	if b.kind != k {
		b.setErr(fmt.Errorf("%w: %s field on %s class", ErrBadFieldSize, what, b.kind))
		return false
	}
	return true
}

// ModuleField adds a module field naming the module at constant target.
func (b *Builder) ModuleField(target uint16) *Builder {
	if b.requireKind(Module, "module") {
		b.fields = binary.LittleEndian.AppendUint16(b.fields, target)
		b.nfield++
	}
	return b
}

// StructField adds a struct field.
func (b *Builder) StructField(name, typ uint16) *Builder {
	if b.requireKind(Struct, "struct") {
		b.fields = binary.LittleEndian.AppendUint16(b.fields, name)
		b.fields = binary.LittleEndian.AppendUint16(b.fields, typ)
		b.nfield++
	}
	return b
}

// EnumField adds an enum field with its enumerants.
func (b *Builder) EnumField(name uint16, values ...Enumerant) *Builder {
	if b.requireKind(Enum, "enum") {
		b.fields = appendEnum(b.fields, Enumerant{Name: name, Values: values})
		b.nfield++
	}
	return b
}

func appendEnum(dst []byte, e Enumerant) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, e.Name)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(e.Values)))
	for _, v := range e.Values {
		dst = appendEnum(dst, v)
	}
	return dst
}

// Method adds a method starting at codePos in the bytecode.
func (b *Builder) Method(name uint16, access Access, codePos uint32) *Builder {
	b.methods = binary.LittleEndian.AppendUint16(b.methods, name)
	b.methods = append(b.methods, uint8(access))
	b.methods = appendUint(b.methods, 0, uint64(codePos))
	b.nmethod++
	return b
}

// Code sets the bytecode.
func (b *Builder) Code(code []byte) *Builder {
	b.code = append(b.code[:0], code...)
	return b
}

// Bytes returns the encoded class file.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	switch {
	case b.nfield > math.MaxUint16:
		return nil, fmt.Errorf("%w: %d fields", ErrBadFieldSize, b.nfield)
	case b.nmethod > math.MaxUint16:
		return nil, fmt.Errorf("%w: %d methods", ErrBadMethodSize, b.nmethod)
	case uint64(len(b.code)) > math.MaxUint32:
		return nil, fmt.Errorf("%w: %d bytes", ErrBadCodeSize, len(b.code))
	}

	out := make([]byte, 0, 16+len(b.pool)+len(b.fields)+len(b.methods)+len(b.code))
	out = append(out, Magic...)
	out = append(out, uint8(b.kind), uint8(b.access))
	out = binary.LittleEndian.AppendUint16(out, uint16(b.nconst))
	out = append(out, b.pool...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.code)))
	out = binary.LittleEndian.AppendUint16(out, uint16(b.nfield))
	out = append(out, b.fields...)
	out = binary.LittleEndian.AppendUint16(out, uint16(b.nmethod))
	out = append(out, b.methods...)
	out = append(out, b.code...)
	return out, nil
}

// appendUint appends a tagged unsigned value in the narrowest width.
func appendUint(dst []byte, flags uint8, v uint64) []byte {
	switch {
	case v <= math.MaxUint8:
		return append(dst, widthU8<<tagShift|flags, uint8(v))
	case v <= math.MaxUint16:
		return binary.LittleEndian.AppendUint16(append(dst, widthU16<<tagShift|flags), uint16(v))
	case v <= math.MaxUint32:
		return binary.LittleEndian.AppendUint32(append(dst, widthU32<<tagShift|flags), uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(append(dst, widthU64<<tagShift|flags), v)
	}
}

func appendInt(dst []byte, v int64) []byte {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return binary.LittleEndian.AppendUint32(append(dst, widthI32<<tagShift), uint32(int32(v)))
	}
	return binary.LittleEndian.AppendUint64(append(dst, widthI64<<tagShift), uint64(v))
}

// appendConst re-encodes a decoded constant in its original width.
func appendConst(dst []byte, rec constRecord, str []byte) []byte {
	tag := rec.Width << tagShift
	v := rec.Bits
	if rec.Kind == ConstStr {
		tag |= tagString
		v = uint64(rec.Len)
	}
	dst = append(dst, tag)
	switch rec.Width {
	case widthU8:
		dst = append(dst, uint8(v))
	case widthU16:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	case widthU32, widthI32:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
	case widthF32:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(math.Float64frombits(v))))
	default:
		dst = binary.LittleEndian.AppendUint64(dst, v)
	}
	return append(dst, str...)
}

// Encode writes c back out in the class-file format. Constants keep their
// original widths; fields and methods are written in table order.
func Encode(c Class) ([]byte, error) {
	r := c.rec()
	if r == nil {
		return nil, fmt.Errorf("%w: zero class", ErrBadClassName)
	}
	meta := c.sp.Meta
	f := c.File()

	out := append([]byte(Magic), uint8(r.Kind), uint8(r.Access))
	out = binary.LittleEndian.AppendUint16(out, uint16(r.PoolLen))
	for _, rec := range poolRecords(meta, r) {
		var str []byte
		if rec.Kind == ConstStr {
			str = meta.Bytes(arena.Ref(rec.Bits), int(rec.Len))
		}
		out = appendConst(out, rec, str)
	}
	out = binary.LittleEndian.AppendUint32(out, r.CodeLen)

	out = binary.LittleEndian.AppendUint16(out, uint16(r.Fields.Len))
	for fld := range f.Fields() {
		fr := fld.rec()
		switch fr.Kind {
		case Module:
			out = binary.LittleEndian.AppendUint16(out, fr.Name)
		case Struct:
			out = binary.LittleEndian.AppendUint16(out, fr.Name)
			out = binary.LittleEndian.AppendUint16(out, fr.Type)
		case Enum:
			out = appendEnum(out, enumerantOf(fld))
		}
	}

	out = binary.LittleEndian.AppendUint16(out, uint16(r.Methods.Len))
	for m := range f.Methods() {
		out = binary.LittleEndian.AppendUint16(out, m.NameIndex())
		out = append(out, uint8(m.Access()))
		out = appendUint(out, 0, uint64(m.CodeOffset()))
	}
	return append(out, f.Bytecode()...), nil
}

func enumerantOf(f Field) Enumerant {
	e := Enumerant{Name: f.NameIndex()}
	for v := range f.Enumerants() {
		e.Values = append(e.Values, enumerantOf(v))
	}
	return e
}
