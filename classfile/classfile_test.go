package classfile

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/glr/internal/arena"
)

func openArena(t *testing.T, cfg arena.Config) *arena.Arena {
	t.Helper()
	a, err := arena.At(cfg)
	if err != nil {
		a, err = arena.At(cfg, arena.WithPager(arena.HeapPager))
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newSpace(t *testing.T) *Space {
	t.Helper()
	return &Space{
		Meta: openArena(t, arena.Config{Name: "metadata", Reserve: 4 << 20, Initial: 4096}),
		Code: openArena(t, arena.Config{Name: "code", Reserve: 1 << 20, Initial: 4096, Exec: true}),
	}
}

func cat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

// pointHead is a struct class header whose pool holds the single string "Point".
var pointHead = []byte("$GLR\x01\x00\x01\x00\x01\x05Point")

func TestDecode_Point(t *testing.T) {
	data := cat(pointHead,
		[]byte{0, 0, 0, 0}, // bytecode_size
		[]byte{1, 0},       // field_count
		[]byte{0, 0, 0, 0}, // name_idx, type_idx
		[]byte{0, 0},       // method_count
	)

	built, err := NewBuilder(Struct, "Point").StructField(0, 0).Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, built)

	sp := newSpace(t)
	c, err := Decode(sp, data, Limits{})
	require.NoError(t, err)

	assert.Equal(t, Struct, c.Kind())
	assert.Equal(t, "Point", c.Name())
	assert.Equal(t, "struct Point", c.String())

	pool := c.File().ConstPool()
	require.Equal(t, 1, pool.Len())
	k, err := pool.At(0)
	require.NoError(t, err)
	assert.Equal(t, ConstStr, k.Kind())
	assert.Equal(t, "Point", k.String())

	_, err = pool.At(1)
	assert.ErrorIs(t, err, ErrBadConstIndex)

	f, ok := c.File().Field("Point")
	require.True(t, ok)
	assert.Equal(t, Struct, f.Kind())
	typ, ok := f.Type()
	require.True(t, ok)
	assert.Equal(t, "Point", typ.String())
	assert.Equal(t, c, f.Owner())

	assert.Empty(t, c.File().Bytecode())
	assert.Zero(t, c.File().CodeBase())
	assert.Zero(t, c.File().NumMethods())
	assert.True(t, c.EntryPoints().IsEmpty())
}

func TestDecode_RoundTrip(t *testing.T) {
	code := []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60}

	b := NewBuilder(Struct, "geo.Rect").Access(Public | Constant)
	i64 := b.String("i64")
	b.StructField(b.String("x"), i64).
		StructField(b.String("y"), i64).
		StructField(b.String("w"), b.Uint(300))
	small := b.Int(-5)
	big := b.Int(1 << 40)
	huge := b.Uint(1 << 40)
	pi := b.Float(3.25)
	empty := b.String("")
	b.Method(b.String("area"), Public, 0).
		Method(b.String("init"), Public|Static, 4).
		Method(b.String("end"), Constant, uint32(len(code))).
		Code(code)
	data, err := b.Bytes()
	require.NoError(t, err)

	sp := newSpace(t)
	c, err := Decode(sp, data, Limits{})
	require.NoError(t, err)

	f := c.File()
	assert.Equal(t, Struct, c.Kind())
	assert.Equal(t, "geo.Rect", c.Name())
	assert.Equal(t, Public|Constant, f.Access())
	assert.Equal(t, code, f.Bytecode())
	assert.Equal(t, []string{"w", "x", "y"}, fieldNames(f))
	assert.Equal(t, []string{"area", "end", "init"}, methodNames(f))

	pool := f.ConstPool()
	for _, tc := range []struct {
		idx  uint16
		kind ConstKind
		str  string
	}{
		{small, ConstInt, "-5"},
		{big, ConstInt, "1099511627776"},
		{huge, ConstUint, "1099511627776"},
		{pi, ConstFloat, "3.25"},
		{empty, ConstStr, ""},
	} {
		k, err := pool.At(int(tc.idx))
		require.NoError(t, err)
		assert.Equal(t, tc.kind, k.Kind())
		assert.Equal(t, tc.str, k.String())
	}
	k, _ := pool.At(int(small))
	assert.Equal(t, int64(-5), k.Int())
	k, _ = pool.At(int(pi))
	assert.InDelta(t, 3.25, k.Float(), 0)

	// Encode keeps every constant width, so a second decode sees the same class.
	again, err := Encode(c)
	require.NoError(t, err)
	assert.Len(t, again, len(data))

	c2, err := Decode(newSpace(t), again, Limits{})
	require.NoError(t, err)
	assert.Equal(t, c.Name(), c2.Name())
	assert.Equal(t, c.Kind(), c2.Kind())
	assert.Equal(t, f.Access(), c2.File().Access())
	assert.Equal(t, fieldNames(f), fieldNames(c2.File()))
	assert.Equal(t, methodNames(f), methodNames(c2.File()))
	assert.Equal(t, code, c2.File().Bytecode())
	assert.Equal(t, pool.Len(), c2.File().ConstPool().Len())
}

func fieldNames(f ClassFile) []string {
	var names []string
	for fld := range f.Fields() {
		names = append(names, fld.Name())
	}
	slices.Sort(names)
	return names
}

func methodNames(f ClassFile) []string {
	var names []string
	for m := range f.Methods() {
		names = append(names, m.Name())
	}
	slices.Sort(names)
	return names
}

func TestDecode_Methods(t *testing.T) {
	code := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := NewBuilder(Module, "main")
	data, err := b.ModuleField(b.String("std")).
		Method(b.String("main"), Public|Static, 2).
		Method(b.String("exit"), Constant|Static, 8).
		Code(code).
		Bytes()
	require.NoError(t, err)

	sp := newSpace(t)
	c, err := Decode(sp, data, Limits{})
	require.NoError(t, err)

	m, ok := c.File().Method("main")
	require.True(t, ok)
	assert.Equal(t, Public|Static, m.Access())
	assert.Equal(t, uint32(2), m.CodeOffset())
	assert.Equal(t, code[2:], m.Code())
	assert.Equal(t, c.File().CodeBase()+2, m.Entry())
	assert.True(t, sp.Code.Contains(m.Entry()))
	assert.Equal(t, c, m.Owner())

	exit, ok := c.File().Method("exit")
	require.True(t, ok)
	assert.Empty(t, exit.Code())

	_, ok = c.File().Method("missing")
	assert.False(t, ok)

	ep := c.EntryPoints()
	assert.Equal(t, uint64(2), ep.GetCardinality())
	assert.True(t, ep.Contains(2))
	assert.True(t, ep.Contains(8))

	mod, ok := c.File().Field("std")
	require.True(t, ok)
	target, ok := mod.Target()
	require.True(t, ok)
	assert.Equal(t, "std", target)
	_, ok = mod.Type()
	assert.False(t, ok)
}

func TestMethod_CodeBounds(t *testing.T) {
	code := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	b := NewBuilder(Module, "vm")
	data, err := b.Method(b.String("a"), Public, 0).
		Method(b.String("b"), 0, 3).
		Method(b.String("alias"), 0, 3).
		Method(b.String("tail"), Static, 6).
		Method(b.String("end"), 0, 8).
		Code(code).
		Bytes()
	require.NoError(t, err)

	c, err := Decode(newSpace(t), data, Limits{})
	require.NoError(t, err)

	for name, want := range map[string][]byte{
		"a":     {0, 1, 2},
		"b":     {3, 4, 5},
		"alias": {3, 4, 5},
		"tail":  {6, 7},
		"end":   {},
	} {
		m, ok := c.File().Method(name)
		require.True(t, ok, name)
		assert.Equal(t, want, m.Code(), name)
	}

	m, ok := c.MethodAt(6)
	require.True(t, ok)
	assert.Equal(t, "tail", m.Name())
	m, ok = c.MethodAt(3)
	require.True(t, ok)
	assert.Contains(t, []string{"b", "alias"}, m.Name())
	_, ok = c.MethodAt(4)
	assert.False(t, ok)
	_, ok = Class{}.MethodAt(0)
	assert.False(t, ok)
}

func TestDecode_Enum(t *testing.T) {
	b := NewBuilder(Enum, "Color")
	data, err := b.EnumField(b.String("Primary"),
		Enumerant{Name: b.String("Red")},
		Enumerant{Name: b.String("Green")},
		Enumerant{Name: b.String("Blue"), Values: []Enumerant{
			{Name: b.String("Navy")},
			{Name: b.String("Sky")},
		}},
	).EnumField(b.String("None")).Bytes()
	require.NoError(t, err)

	c, err := Decode(newSpace(t), data, Limits{})
	require.NoError(t, err)
	assert.Equal(t, Enum, c.Kind())
	assert.Equal(t, 2, c.File().NumFields())

	primary, ok := c.File().Field("Primary")
	require.True(t, ok)
	assert.Equal(t, 3, primary.NumEnumerants())

	var names []string
	var blue Field
	for e := range primary.Enumerants() {
		names = append(names, e.Name())
		if e.Name() == "Blue" {
			blue = e
		}
	}
	assert.Equal(t, []string{"Red", "Green", "Blue"}, names)

	var nested []string
	for e := range blue.Enumerants() {
		nested = append(nested, e.Name())
	}
	assert.Equal(t, []string{"Navy", "Sky"}, nested)

	// Enumerants are not top-level fields.
	_, ok = c.File().Field("Red")
	assert.False(t, ok)

	none, ok := c.File().Field("None")
	require.True(t, ok)
	assert.Zero(t, none.NumEnumerants())

	again, err := Encode(c)
	require.NoError(t, err)
	c2, err := Decode(newSpace(t), again, Limits{})
	require.NoError(t, err)
	p2, ok := c2.File().Field("Primary")
	require.True(t, ok)
	assert.Equal(t, 3, p2.NumEnumerants())
}

func TestDecode_BadMagic(t *testing.T) {
	valid, err := NewBuilder(Struct, "Point").Bytes()
	require.NoError(t, err)
	corrupt := slices.Clone(valid)
	corrupt[0] = '#'

	for name, data := range map[string][]byte{
		"empty":     nil,
		"short":     []byte("$GL"),
		"lowercase": []byte("$glr\x01\x00\x01\x00\x01\x05Point"),
		"corrupt":   corrupt,
	} {
		t.Run(name, func(t *testing.T) {
			sp := newSpace(t)
			meta, code := sp.Meta.Stats(), sp.Code.Stats()

			_, err := Decode(sp, data, Limits{})
			require.ErrorIs(t, err, ErrBadClassMagic)

			assert.Equal(t, meta, sp.Meta.Stats())
			assert.Equal(t, code, sp.Code.Stats())
		})
	}
}

func TestDecode_EmptyPool(t *testing.T) {
	sp := newSpace(t)
	used := sp.Meta.Used()

	data := []byte("$GLR\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")
	_, err := Decode(sp, data, Limits{})
	require.ErrorIs(t, err, ErrBadConstSize)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 8, de.Offset)
	assert.Equal(t, used, sp.Meta.Used())
}

func TestDecode_Errors(t *testing.T) {
	build := func(f func(b *Builder)) []byte {
		b := NewBuilder(Struct, "Point")
		f(b)
		data, err := b.Bytes()
		require.NoError(t, err)
		return data
	}
	enum := func(f func(b *Builder)) []byte {
		b := NewBuilder(Enum, "E")
		f(b)
		data, err := b.Bytes()
		require.NoError(t, err)
		return data
	}
	valid := build(func(b *Builder) {})

	tests := []struct {
		name string
		data []byte
		lim  Limits
		want error
	}{
		{"kind", cat([]byte("$GLR\x03\x00"), valid[6:]), Limits{}, ErrBadClassType},
		{"truncated kind", []byte("$GLR"), Limits{}, ErrBadClassType},
		{"undefined access bit 3", cat([]byte("$GLR\x01\x08"), valid[6:]), Limits{}, ErrBadAccessModifier},
		{"unknown access bit", cat([]byte("$GLR\x01\x40"), valid[6:]), Limits{}, ErrBadAccessModifier},
		{"truncated access", []byte("$GLR\x01"), Limits{}, ErrBadAccessModifier},
		{"truncated pool count", []byte("$GLR\x01\x00\x01"), Limits{}, ErrBadConstSize},
		{"truncated constant", []byte("$GLR\x01\x00\x02\x00\x01\x05Point\x20\x01"), Limits{}, ErrBadConstSize},
		{"reserved tag bits", []byte("$GLR\x01\x00\x01\x00\x03\x05Point"), Limits{}, ErrBadConstType},
		{"float string", []byte("$GLR\x01\x00\x01\x00\xc1\x00\x00\xa0\x40Point"), Limits{}, ErrBadConstType},
		{"negative string length", []byte("$GLR\x01\x00\x01\x00\x81\xff\xff\xff\xff"), Limits{}, ErrBadConstData},
		{"string past end", []byte("$GLR\x01\x00\x01\x00\x01\x09Point"), Limits{}, ErrBadConstData},
		{"numeric class name", cat([]byte("$GLR\x01\x00\x01\x00\x00\x07"), valid[len(pointHead):]), Limits{}, ErrBadClassName},
		{"empty class name", cat([]byte("$GLR\x01\x00\x01\x00\x01\x00"), valid[len(pointHead):]), Limits{}, ErrBadClassName},
		{"truncated code size", cat(pointHead, []byte{0, 0}), Limits{}, ErrBadCodeSize},
		{"code size limit", build(func(b *Builder) { b.Code([]byte{1, 2, 3, 4, 5}) }), Limits{MaxCodeSize: 4}, ErrBadCodeSize},
		{"truncated field count", cat(pointHead, []byte{0, 0, 0, 0, 1}), Limits{}, ErrBadFieldSize},
		{"truncated field", cat(pointHead, []byte{0, 0, 0, 0, 1, 0, 0, 0, 0}), Limits{}, ErrBadFieldSize},
		{"field name index", build(func(b *Builder) { b.StructField(9, 0) }), Limits{}, ErrBadConstIndex},
		{"field type index", build(func(b *Builder) { b.StructField(0, 9) }), Limits{}, ErrBadConstIndex},
		{"field name not string", build(func(b *Builder) { b.StructField(b.Uint(1), 0) }), Limits{}, ErrBadConstIndex},
		{"duplicate field", build(func(b *Builder) {
			x := b.String("x")
			b.StructField(x, 0).StructField(x, 0)
		}), Limits{}, ErrDuplicateMember},
		{"truncated enumerant count", cat([]byte("$GLR\x00\x00\x01\x00\x01\x01E"), []byte{0, 0, 0, 0, 1, 0, 0, 0, 2}), Limits{}, ErrBadEnumSize},
		{"truncated enumerant", cat([]byte("$GLR\x00\x00\x01\x00\x01\x01E"), []byte{0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0}), Limits{}, ErrBadEnumField},
		{"enum depth", enum(func(b *Builder) {
			b.EnumField(b.String("a"), Enumerant{Name: b.String("b"), Values: []Enumerant{{Name: b.String("c")}}})
		}), Limits{MaxEnumDepth: 1}, ErrBadEnumField},
		{"duplicate enumerant", enum(func(b *Builder) {
			v := b.String("v")
			b.EnumField(b.String("a"), Enumerant{Name: v}, Enumerant{Name: v})
		}), Limits{}, ErrDuplicateMember},
		{"truncated method count", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1}), Limits{}, ErrBadMethodSize},
		{"truncated method", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1, 0, 0, 0}), Limits{}, ErrBadMethodSize},
		{"truncated code position", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0x20, 1}), Limits{}, ErrBadMethodSize},
		{"method access", build(func(b *Builder) { b.Method(0, 0x80, 0) }), Limits{}, ErrBadAccessModifier},
		{"method name index", build(func(b *Builder) { b.Method(7, 0, 0) }), Limits{}, ErrBadConstIndex},
		{"duplicate method", build(func(b *Builder) { b.Method(0, 0, 0).Method(0, 0, 0) }), Limits{}, ErrDuplicateMember},
		{"code position past end", build(func(b *Builder) { b.Method(0, 0, 4).Code([]byte{1, 2, 3}) }), Limits{}, ErrBadCodePos},
		{"float code position", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0xc0, 0, 0, 0, 0}), Limits{}, ErrBadCodePos},
		{"string code position", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0x01, 0}), Limits{}, ErrBadCodePos},
		{"negative code position", cat(pointHead, []byte{0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0x80, 0xff, 0xff, 0xff, 0xff}), Limits{}, ErrBadCodePos},
		{"missing bytecode", build(func(b *Builder) { b.Code([]byte{1, 2, 3}) })[:len(valid)+2], Limits{}, ErrBadCodeData},
		{"trailing bytes", append(slices.Clone(valid), 0), Limits{}, ErrBadCodeData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(newSpace(t), tt.data, tt.lim)
			require.ErrorIs(t, err, tt.want)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.GreaterOrEqual(t, de.Offset, 0)
			assert.LessOrEqual(t, de.Offset, len(tt.data))
		})
	}
}

func TestDecode_OutOfMemory(t *testing.T) {
	sp := &Space{
		Meta: openArena(t, arena.Config{Name: "metadata", Reserve: 64, Initial: 64}),
		Code: openArena(t, arena.Config{Name: "code", Reserve: 64, Initial: 64}),
	}
	b := NewBuilder(Struct, "Point")
	for _, n := range []string{"a", "b", "c", "d"} {
		b.StructField(b.String(n), 0)
	}
	data, err := b.Bytes()
	require.NoError(t, err)

	_, err = Decode(sp, data, Limits{})
	assert.ErrorIs(t, err, arena.ErrOutOfMemory)
}

func TestDecode_IncompleteSpace(t *testing.T) {
	_, err := Decode(nil, []byte(Magic), Limits{})
	assert.Error(t, err)
	_, err = Decode(&Space{}, []byte(Magic), Limits{})
	assert.Error(t, err)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(Kind(7), "X").Bytes()
	assert.ErrorIs(t, err, ErrBadClassType)

	_, err = NewBuilder(Struct, "X").ModuleField(0).Bytes()
	assert.ErrorIs(t, err, ErrBadFieldSize)

	_, err = Encode(Class{})
	assert.Error(t, err)
}

func TestAccess(t *testing.T) {
	for a := range Access(8) {
		assert.NoError(t, a.Validate(), "%#02x", uint8(a))
	}
	for _, a := range []Access{0x08, 0x10, 0x20, 0x40, 0x80, 0x0b} {
		assert.ErrorIs(t, a.Validate(), ErrBadAccessModifier, "%#02x", uint8(a))
	}

	assert.True(t, (Public | Static).Has(Static))
	assert.False(t, Public.Has(Public|Static))

	assert.Equal(t, "none", Access(0).String())
	assert.Equal(t, "public|static", (Public | Static).String())
	assert.Equal(t, "public|const", (Public | Constant).String())
	assert.Equal(t, "const|0x80", Access(0x82).String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "enum", Enum.String())
	assert.Equal(t, "struct", Struct.String())
	assert.Equal(t, "module", Module.String())
	assert.Equal(t, "Kind(3)", Kind(3).String())
	assert.False(t, Kind(3).Valid())
}
