package classfile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/glr/internal/arena"
)

func decodeNamed(t *testing.T, sp *Space, name string) Class {
	t.Helper()
	data, err := NewBuilder(Struct, name).Bytes()
	require.NoError(t, err)
	c, err := Decode(sp, data, Limits{})
	require.NoError(t, err)
	return c
}

func TestClassTable_GrowOnNinthInsert(t *testing.T) {
	sp := newSpace(t)
	syms := openArena(t, arena.Config{Name: "symbols", Reserve: 1 << 16})
	tab, err := NewClassTable(sp, syms, 8)
	require.NoError(t, err)
	require.Equal(t, 8, tab.Cap())

	var classes []Class
	for i := range 8 {
		c := decodeNamed(t, sp, fmt.Sprintf("C%d", i))
		require.NoError(t, tab.Insert(c))
		classes = append(classes, c)
	}

	ninth := decodeNamed(t, sp, "C8")
	require.ErrorIs(t, tab.Insert(ninth), ErrTableFull)
	assert.Equal(t, 8, tab.Len())

	require.NoError(t, tab.Grow())
	require.NoError(t, tab.Insert(ninth))
	classes = append(classes, ninth)
	assert.Equal(t, 16, tab.Cap())
	assert.Equal(t, 9, tab.Len())
	assert.LessOrEqual(t, tab.MaxProbe(), 9)

	for _, c := range classes {
		got, ok := tab.Find(c.Name())
		require.True(t, ok, c.Name())
		assert.Equal(t, c, got)

		again, _ := tab.Find(c.Name())
		assert.Equal(t, got, again)
	}

	var n int
	for range tab.All() {
		n++
	}
	assert.Equal(t, 9, n)

	_, ok := tab.Find("C9")
	assert.False(t, ok)
}

func TestClassTable_InsertTwice(t *testing.T) {
	sp := newSpace(t)
	tab, err := NewClassTable(sp, openArena(t, arena.Config{Name: "symbols", Reserve: 1 << 16}), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, tab.Cap())

	c := decodeNamed(t, sp, "Point")
	require.NoError(t, tab.Insert(c))
	require.NoError(t, tab.Insert(c))
	assert.Equal(t, 1, tab.Len())
}

func TestClassTable_ForeignClass(t *testing.T) {
	sp := newSpace(t)
	tab, err := NewClassTable(sp, openArena(t, arena.Config{Name: "symbols", Reserve: 1 << 16}), 8)
	require.NoError(t, err)

	other := decodeNamed(t, newSpace(t), "Point")
	assert.ErrorIs(t, tab.Insert(other), ErrForeignClass)
}

func TestClassTable_GrowOutOfMemory(t *testing.T) {
	sp := newSpace(t)
	// 8 slots fit after the reserved first word; 16 do not.
	tab, err := NewClassTable(sp, openArena(t, arena.Config{Name: "symbols", Reserve: 100}), 8)
	require.NoError(t, err)

	err = tab.Grow()
	assert.ErrorIs(t, err, arena.ErrOutOfMemory)
	assert.Equal(t, 8, tab.Cap())
}
