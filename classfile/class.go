package classfile

import (
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/glr/internal/arena"
)

// Class is a decoded class: one of Enum, Struct or Module, selected by Kind,
// each wrapping the same ClassFile payload reached through File.
//
// Class values are comparable. Two lookups of the same class compare equal.
type Class struct {
	sp  *Space
	ref arena.Ref
}

func (c Class) rec() *classRecord {
	if c.sp == nil {
		return nil
	}
	return arena.Get[classRecord](c.sp.Meta, c.ref)
}

// IsZero reports whether c is the zero Class.
func (c Class) IsZero() bool { return c.ref == 0 }

// Kind returns the class variant.
func (c Class) Kind() Kind {
	if r := c.rec(); r != nil {
		return r.Kind
	}
	return 0
}

// Name returns the class name, constant 0 of its pool.
func (c Class) Name() string {
	r := c.rec()
	if r == nil {
		return ""
	}
	return string(r.Key(c.sp.Meta))
}

// File returns the payload shared by every class variant.
func (c Class) File() ClassFile { return ClassFile{cls: c} }

// EntryPoints returns the set of method code offsets, the only positions a
// call into this class may start at. Method.Code and MethodAt resolve against
// it; an interpreter can keep it to validate call targets.
func (c Class) EntryPoints() *roaring.Bitmap {
	bm := roaring.New()
	for m := range c.File().Methods() {
		bm.Add(m.CodeOffset())
	}
	return bm
}

// MethodAt returns a method starting at code offset off. When several methods
// share an entry point any one of them is returned.
func (c Class) MethodAt(off uint32) (Method, bool) {
	if !c.EntryPoints().Contains(off) {
		return Method{}, false
	}
	for m := range c.File().Methods() {
		if m.CodeOffset() == off {
			return m, true
		}
	}
	return Method{}, false
}

func (c Class) String() string {
	return fmt.Sprintf("%s %s", c.Kind(), c.Name())
}

// ClassFile holds what every class variant has: access flags, the constant
// pool, the field and method tables and the bytecode.
type ClassFile struct {
	cls Class
}

func (f ClassFile) meta() *arena.Arena { return f.cls.sp.Meta }

// Access returns the class access flags.
func (f ClassFile) Access() Access {
	if r := f.cls.rec(); r != nil {
		return r.Access
	}
	return 0
}

// ConstPool returns the constant pool.
func (f ClassFile) ConstPool() ConstPool {
	r := f.cls.rec()
	if r == nil {
		return ConstPool{}
	}
	return ConstPool{sp: f.cls.sp, ref: r.Pool, n: r.PoolLen}
}

// NumFields returns the number of top-level fields.
func (f ClassFile) NumFields() int {
	if r := f.cls.rec(); r != nil {
		return int(r.Fields.Len)
	}
	return 0
}

// Field looks a top-level field up by name. Module fields are named by their
// target module.
func (f ClassFile) Field(name string) (Field, bool) {
	r := f.cls.rec()
	if r == nil {
		return Field{}, false
	}
	ref, _, ok := fieldTable(f.meta(), r).FindString(name)
	if !ok {
		return Field{}, false
	}
	return Field{sp: f.cls.sp, ref: ref}, true
}

// Fields yields the top-level fields in table order.
func (f ClassFile) Fields() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		r := f.cls.rec()
		if r == nil {
			return
		}
		for ref := range fieldTable(f.meta(), r).All() {
			if !yield(Field{sp: f.cls.sp, ref: ref}) {
				return
			}
		}
	}
}

// NumMethods returns the number of methods.
func (f ClassFile) NumMethods() int {
	if r := f.cls.rec(); r != nil {
		return int(r.Methods.Len)
	}
	return 0
}

// Method looks a method up by name.
func (f ClassFile) Method(name string) (Method, bool) {
	r := f.cls.rec()
	if r == nil {
		return Method{}, false
	}
	ref, _, ok := methodTable(f.meta(), r).FindString(name)
	if !ok {
		return Method{}, false
	}
	return Method{sp: f.cls.sp, ref: ref}, true
}

// Methods yields the methods in table order.
func (f ClassFile) Methods() iter.Seq[Method] {
	return func(yield func(Method) bool) {
		r := f.cls.rec()
		if r == nil {
			return
		}
		for ref := range methodTable(f.meta(), r).All() {
			if !yield(Method{sp: f.cls.sp, ref: ref}) {
				return
			}
		}
	}
}

// Bytecode returns the class's bytecode in the code arena.
func (f ClassFile) Bytecode() []byte {
	r := f.cls.rec()
	if r == nil {
		return nil
	}
	return f.cls.sp.Code.Bytes(r.Code, int(r.CodeLen))
}

// CodeBase returns the absolute address of the bytecode, 0 if the class has
// none.
func (f ClassFile) CodeBase() uintptr {
	r := f.cls.rec()
	if r == nil {
		return 0
	}
	return f.cls.sp.Code.Addr(r.Code)
}

// Field is a view of a field record. Its shape depends on Kind: Module fields
// name a target module, Struct fields a name and a type, Enum fields a name and
// a list of enumerants.
type Field struct {
	sp  *Space
	ref arena.Ref
}

func (f Field) rec() *fieldRecord {
	if f.sp == nil {
		return nil
	}
	return arena.Get[fieldRecord](f.sp.Meta, f.ref)
}

// Kind returns the kind of the declaring class, which fixes the field's shape.
func (f Field) Kind() Kind {
	if r := f.rec(); r != nil {
		return r.Kind
	}
	return 0
}

// Name returns the field name. For a module field this is the target.
func (f Field) Name() string {
	r := f.rec()
	if r == nil {
		return ""
	}
	return string(r.Key(f.sp.Meta))
}

// NameIndex returns the constant pool index of the name.
func (f Field) NameIndex() uint16 {
	if r := f.rec(); r != nil {
		return r.Name
	}
	return 0
}

// Target returns the module a module field refers to.
func (f Field) Target() (string, bool) {
	if f.Kind() != Module {
		return "", false
	}
	return f.Name(), true
}

// Type returns the type constant of a struct field.
func (f Field) Type() (Const, bool) {
	r := f.rec()
	if r == nil || r.Kind != Struct {
		return Const{}, false
	}
	c, err := f.Owner().File().ConstPool().At(int(r.Type))
	return c, err == nil
}

// NumEnumerants returns the declared enumerant count of an enum field.
func (f Field) NumEnumerants() int {
	if r := f.rec(); r != nil {
		return int(r.Count)
	}
	return 0
}

// Enumerants yields the enumerants of an enum field in declaration order.
func (f Field) Enumerants() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		r := f.rec()
		if r == nil {
			return
		}
		for ref := r.Head; ref != 0; {
			if !yield(Field{sp: f.sp, ref: ref}) {
				return
			}
			next := arena.Get[fieldRecord](f.sp.Meta, ref)
			if next == nil {
				return
			}
			ref = next.Next
		}
	}
}

// Owner returns the class that declares f.
func (f Field) Owner() Class {
	r := f.rec()
	if r == nil {
		return Class{}
	}
	return Class{sp: f.sp, ref: r.Owner}
}

func (f Field) String() string {
	switch f.Kind() {
	case Struct:
		t, _ := f.Type()
		return fmt.Sprintf("%s %s", f.Name(), t)
	case Enum:
		return fmt.Sprintf("%s(%d)", f.Name(), f.NumEnumerants())
	default:
		return f.Name()
	}
}

// Method is a view of a method record.
type Method struct {
	sp  *Space
	ref arena.Ref
}

func (m Method) rec() *methodRecord {
	if m.sp == nil {
		return nil
	}
	return arena.Get[methodRecord](m.sp.Meta, m.ref)
}

// Name returns the method name.
func (m Method) Name() string {
	r := m.rec()
	if r == nil {
		return ""
	}
	return string(r.Key(m.sp.Meta))
}

// NameIndex returns the constant pool index of the name.
func (m Method) NameIndex() uint16 {
	if r := m.rec(); r != nil {
		return r.Name
	}
	return 0
}

// Access returns the method access flags.
func (m Method) Access() Access {
	if r := m.rec(); r != nil {
		return r.Access
	}
	return 0
}

// CodeOffset returns the method's start offset in the owner's bytecode.
func (m Method) CodeOffset() uint32 {
	if r := m.rec(); r != nil {
		return r.Code
	}
	return 0
}

// Entry returns the absolute address the interpreter starts the method at.
func (m Method) Entry() uintptr {
	base := m.Owner().File().CodeBase()
	if base == 0 {
		return 0
	}
	return base + uintptr(m.CodeOffset())
}

// Code returns the method body: the owner's bytecode from the method's start
// up to the next entry point, or to the end when no method starts later.
func (m Method) Code() []byte {
	owner := m.Owner()
	code := owner.File().Bytecode()
	start := m.CodeOffset()
	if uint64(start) > uint64(len(code)) {
		return nil
	}
	end := len(code)
	if start < math.MaxUint32 {
		if next := owner.EntryPoints().NextValue(start + 1); next >= 0 && next < int64(end) {
			end = int(next)
		}
	}
	return code[start:end]
}

// Owner returns the class that declares m.
func (m Method) Owner() Class {
	r := m.rec()
	if r == nil {
		return Class{}
	}
	return Class{sp: m.sp, ref: r.Owner}
}
