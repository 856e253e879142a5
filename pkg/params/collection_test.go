package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named interface{ Name() string }

type first struct{}

func (first) Name() string { return "first" }

type second struct{}

func (second) Name() string { return "second" }

func TestFind_ReturnsFirstAssignable(t *testing.T) {
	c := New(42, second{}, first{})

	n, ok := Find[named](c)
	require.True(t, ok)
	assert.Equal(t, "second", n.Name())

	f, ok := Find[first](c)
	require.True(t, ok)
	assert.Equal(t, "first", f.Name())

	_, ok = Find[string](c)
	assert.False(t, ok)
}

func TestRemove_KeepsOrder(t *testing.T) {
	c := New("a", 1, "b", 2)

	v, ok := Remove[int](c)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []any{"a", "b", 2}, c.Items())

	_, ok = Remove[float64](c)
	assert.False(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestNilHandling(t *testing.T) {
	c := New(nil, "x")
	c.Add(nil)
	assert.Equal(t, 1, c.Len())

	var missing *Collection
	_, ok := Find[string](missing)
	assert.False(t, ok)
}

func TestClone_IsIndependent(t *testing.T) {
	c := New("a")
	clone := c.Clone()
	clone.Add("b")

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, clone.Len())
	assert.True(t, Contains[string](clone))
}
