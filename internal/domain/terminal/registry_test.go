package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertUnique(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Insert(&Session{ID: "t1"}))
	assert.False(t, r.Insert(&Session{ID: "t1"}), "second insert for a live id must fail")
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Insert(&Session{ID: "t1"})

	s, ok := r.Remove("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", s.ID)

	_, ok = r.Remove("t1")
	assert.False(t, ok)
	assert.False(t, r.Has("t1"))
}

func TestRegistryOrderedViews(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		r.Insert(&Session{ID: id})
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestRegistryDrain(t *testing.T) {
	r := NewRegistry()
	r.Insert(&Session{ID: "a"})
	r.Insert(&Session{ID: "b"})

	drained := r.Drain()

	assert.Len(t, drained, 2)
	assert.Equal(t, 0, r.Len())
}
