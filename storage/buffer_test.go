package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferDiscardLeavesParentUntouched(t *testing.T) {
	parent := NewMemBackend()
	parent.Write([]byte("a"), []byte("1"))

	buf := NewBuffer(parent)
	buf.Write([]byte("a"), []byte("2"))
	buf.Write([]byte("b"), []byte("3"))
	buf.Remove([]byte("a"))

	v, ok := buf.Read([]byte("a"))
	assert.False(t, ok)
	v, ok = buf.Read([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("3"), v)

	buf.Discard()

	pv, ok := parent.Read([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), pv)
	_, ok = parent.Read([]byte("b"))
	assert.False(t, ok)
}

func TestBufferCommitAppliesToParent(t *testing.T) {
	parent := NewMemBackend()
	parent.Write([]byte("a"), []byte("1"))

	buf := NewBuffer(parent)
	buf.Write([]byte("a"), []byte("2"))
	buf.Remove([]byte("missing"))
	buf.Commit()

	v, ok := parent.Read([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.False(t, buf.Pending())
}

func TestNestedBuffers(t *testing.T) {
	root := NewMemBackend()
	root.Write([]byte("x"), []byte("root"))

	outer := NewBuffer(root)
	outer.Write([]byte("x"), []byte("outer"))

	inner := NewBuffer(outer)
	inner.Write([]byte("x"), []byte("inner"))

	v, _ := inner.Read([]byte("x"))
	assert.Equal(t, []byte("inner"), v)

	inner.Discard()
	v, _ = outer.Read([]byte("x"))
	assert.Equal(t, []byte("outer"), v)

	outer.Commit()
	v, ok := root.Read([]byte("x"))
	require.True(t, ok)
	assert.Equal(t, []byte("outer"), v)
}

func TestBufferValueNeverReadAsRemoval(t *testing.T) {
	parent := NewMemBackend()

	buf := NewBuffer(parent)
	buf.Write([]byte("k"), []byte{0xde, 0xad})

	v, ok := buf.Read([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad}, v)

	it := buf.Scan(Min(nil, Unbounded), Max(nil, Unbounded), Ascending)
	defer it.Close()
	require.True(t, it.Next())
	assert.Equal(t, []byte{0xde, 0xad}, it.Value())

	buf.Commit()
	pv, ok := parent.Read([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad}, pv)
}
