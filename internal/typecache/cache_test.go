package typecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_New_DefaultCapacity(t *testing.T) {
	c := New(0)
	require.Equal(t, 1, c.Capacity())
	require.Equal(t, 0, c.Len())
}

func TestCache_PutGet(t *testing.T) {
	c := New(4)

	_, ok := c.Get(16385)
	require.False(t, ok)

	c.Put(16385, "mood")
	name, ok := c.Get(16385)
	require.True(t, ok)
	require.Equal(t, "mood", name)

	// overwrite keeps one entry
	c.Put(16385, "mood2")
	name, _ = c.Get(16385)
	require.Equal(t, "mood2", name)
	require.Equal(t, 1, c.Len())
}

func TestCache_EvictsWhenFull(t *testing.T) {
	c := New(3)
	for oid := uint32(1); oid <= 3; oid++ {
		c.Put(oid, "t")
	}
	require.Equal(t, 3, c.Len())

	c.Put(4, "t4")
	require.Equal(t, 3, c.Len())

	_, ok := c.Get(4)
	require.True(t, ok)
}

func TestCache_SecondChance(t *testing.T) {
	c := New(3)
	c.Put(1, "a")
	c.Put(2, "b")
	c.Put(3, "c")

	// All ref bits are set: the sweep clears them and takes oid 1.
	c.Put(4, "d")
	_, ok := c.Get(1)
	require.False(t, ok)

	// Touching oid 2 saves it; oid 3 is the next victim.
	_, ok = c.Get(2)
	require.True(t, ok)
	c.Put(5, "e")

	_, ok = c.Get(3)
	require.False(t, ok)
	for _, oid := range []uint32{2, 4, 5} {
		_, ok = c.Get(oid)
		require.True(t, ok, "oid %d", oid)
	}
}
