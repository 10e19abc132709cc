package matcher_test

import (
	"testing"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/testutil"
)

func TestAvailablePool_PreservesInsertionOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	pool := matcher.NewAvailablePool()
	pool.PushBack(1)
	pool.PushBack(2)
	pool.PushBack(3)

	assert.Equal([]int{1, 2, 3}, pool.IDs())

	id, ok := pool.PopFront()
	assert.True(ok)
	assert.Equal(1, id)
	assert.Equal([]int{2, 3}, pool.IDs())
}

func TestAvailablePool_RemoveAtPreservesRelativeOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	pool := matcher.NewAvailablePool()
	for _, id := range []int{10, 20, 30, 40} {
		pool.PushBack(id)
	}

	removed := pool.RemoveAt(1)
	assert.Equal(20, removed)
	assert.Equal([]int{10, 30, 40}, pool.IDs())
}

func TestAvailablePool_PopFrontEmpty(t *testing.T) {
	assert := testutil.NewAssert(t)
	pool := matcher.NewAvailablePool()
	_, ok := pool.PopFront()
	assert.False(ok)
}
