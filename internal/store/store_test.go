package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetPathArray(t *testing.T) {
	root := Array()
	require.NoError(t, SetPath(root, "a/b/c", Str("hi")))

	got := GetPath(root, "a/b/c")
	require.NotNil(t, got)
	s, ok := got.AsStr()
	require.True(t, ok)
	assert.Equal(t, "hi", s)
}

func TestSetGetPathListIndex(t *testing.T) {
	root := Array()
	require.NoError(t, SetPath(root, "a/b/0/c", Int(42)))

	got := GetPath(root, "a/b/0/c")
	require.NotNil(t, got)
	i, ok := got.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	list := GetPath(root, "a/b")
	require.NotNil(t, list)
	assert.Equal(t, KindList, list.Kind())
}

func TestGetPathMissing(t *testing.T) {
	root := Array()
	assert.Nil(t, GetPath(root, "does/not/exist"))
}

func TestSetPathScalarIntermediateFails(t *testing.T) {
	root := Array()
	require.NoError(t, SetPath(root, "a", Str("scalar")))
	err := SetPath(root, "a/b", Str("nested"))
	assert.Error(t, err)
}

func TestArrayKeyOrderPreserved(t *testing.T) {
	root := Array()
	require.NoError(t, SetPath(root, "first", Int(1)))
	require.NoError(t, SetPath(root, "second", Int(2)))
	require.NoError(t, SetPath(root, "third", Int(3)))

	assert.Equal(t, []string{"first", "second", "third"}, root.Keys())
}
