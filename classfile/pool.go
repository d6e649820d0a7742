package classfile

import (
	"fmt"
	"iter"
	"math"
	"strconv"

	"github.com/hupe1980/glr/internal/arena"
)

// ConstKind is the type of a constant pool entry.
type ConstKind uint8

const (
	ConstInt ConstKind = iota + 1
	ConstUint
	ConstFloat
	ConstStr
)

func (k ConstKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstUint:
		return "uint"
	case ConstFloat:
		return "float"
	case ConstStr:
		return "str"
	default:
		return fmt.Sprintf("ConstKind(%d)", uint8(k))
	}
}

// Tag byte layout.
const (
	tagString   = 0x01
	tagReserved = 0x1e
	tagShift    = 5
)

// Width selectors, bits 7..5 of a tag.
const (
	widthU8 uint8 = iota
	widthU16
	widthU32
	widthU64
	widthI32
	widthI64
	widthF32
	widthF64
)

func widthKind(w uint8) ConstKind {
	switch {
	case w <= widthU64:
		return ConstUint
	case w <= widthI64:
		return ConstInt
	default:
		return ConstFloat
	}
}

// Const is a view of one constant pool entry.
type Const struct {
	sp  *Space
	ref arena.Ref
}

func (c Const) rec() *constRecord {
	if c.sp == nil {
		return nil
	}
	return arena.Get[constRecord](c.sp.Meta, c.ref)
}

// Kind returns the constant's type.
func (c Const) Kind() ConstKind {
	if r := c.rec(); r != nil {
		return r.Kind
	}
	return 0
}

// Int returns the value converted to int64. Strings yield their length.
func (c Const) Int() int64 {
	r := c.rec()
	if r == nil {
		return 0
	}
	switch r.Kind {
	case ConstFloat:
		return int64(math.Float64frombits(r.Bits))
	case ConstStr:
		return int64(r.Len)
	default:
		return int64(r.Bits)
	}
}

// Uint returns the value converted to uint64. Strings yield their length.
func (c Const) Uint() uint64 {
	r := c.rec()
	if r == nil {
		return 0
	}
	switch r.Kind {
	case ConstFloat:
		return uint64(math.Float64frombits(r.Bits))
	case ConstStr:
		return uint64(r.Len)
	default:
		return r.Bits
	}
}

// Float returns the value converted to float64.
func (c Const) Float() float64 {
	r := c.rec()
	if r == nil {
		return 0
	}
	switch r.Kind {
	case ConstFloat:
		return math.Float64frombits(r.Bits)
	case ConstInt:
		return float64(int64(r.Bits))
	case ConstStr:
		return float64(r.Len)
	default:
		return float64(r.Bits)
	}
}

// Bytes returns the arena bytes of a string constant, nil otherwise.
func (c Const) Bytes() []byte {
	r := c.rec()
	if r == nil || r.Kind != ConstStr {
		return nil
	}
	return c.sp.Meta.Bytes(arena.Ref(r.Bits), int(r.Len))
}

// String returns a string constant's text, or the formatted number.
func (c Const) String() string {
	r := c.rec()
	if r == nil {
		return ""
	}
	switch r.Kind {
	case ConstStr:
		return string(c.Bytes())
	case ConstInt:
		return strconv.FormatInt(int64(r.Bits), 10)
	case ConstFloat:
		return strconv.FormatFloat(math.Float64frombits(r.Bits), 'g', -1, 64)
	default:
		return strconv.FormatUint(r.Bits, 10)
	}
}

// ConstPool is a view of a class's constant pool. Entry 0 is the class name.
type ConstPool struct {
	sp  *Space
	ref arena.Ref
	n   uint32
}

// Len returns the number of constants.
func (p ConstPool) Len() int { return int(p.n) }

// At returns constant i.
func (p ConstPool) At(i int) (Const, error) {
	if i < 0 || i >= int(p.n) {
		return Const{}, fmt.Errorf("%w: %d of %d", ErrBadConstIndex, i, p.n)
	}
	return p.at(i), nil
}

func (p ConstPool) at(i int) Const {
	return Const{sp: p.sp, ref: p.ref + arena.Ref(i)*arena.Ref(constRecordSize)}
}

// All yields every constant with its index.
func (p ConstPool) All() iter.Seq2[int, Const] {
	return func(yield func(int, Const) bool) {
		for i := range int(p.n) {
			if !yield(i, p.at(i)) {
				return
			}
		}
	}
}
