package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PushWithinCapacity(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 3; i++ {
		_, evicted := r.Push(i)
		assert.False(t, evicted)
	}

	assert.Equal(t, []int{1, 2, 3}, r.Items())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
}

func TestRing_EvictsOldestFirst(t *testing.T) {
	r := New[int](10)
	for i := 1; i <= 25; i++ {
		old, evicted := r.Push(i)
		if i > 10 {
			require.True(t, evicted)
			assert.Equal(t, i-10, old)
		}
	}

	assert.Equal(t, []int{16, 17, 18, 19, 20, 21, 22, 23, 24, 25}, r.Items())
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 25, last)
}

func TestRing_PreservesIdentity(t *testing.T) {
	type entry struct{ id int }
	r := New[*entry](20)

	var all []*entry
	for i := range 30 {
		e := &entry{id: i}
		all = append(all, e)
		r.Push(e)
	}

	items := r.Items()
	require.Len(t, items, 20)
	for i, e := range items {
		assert.Same(t, all[10+i], e)
	}
}

func TestRing_ItemsIsACopy(t *testing.T) {
	r := New[string](2)
	r.Push("a")
	items := r.Items()
	items[0] = "mutated"

	assert.Equal(t, []string{"a"}, r.Items())
}

func TestRing_EmptyAndReset(t *testing.T) {
	r := New[int](0)
	assert.Equal(t, 1, r.Cap())
	assert.Empty(t, r.Items())
	_, ok := r.Last()
	assert.False(t, ok)

	r.Push(7)
	r.Push(8)
	assert.Equal(t, []int{8}, r.Items())

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Items())
}

func TestRing_ConcurrentPush(t *testing.T) {
	r := New[int](50)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				r.Push(g*100 + i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}
