package buffer

import (
	"testing"

	"github.com/jobala/pagecache/util"
	"github.com/stretchr/testify/assert"
)

func TestLrukReplacer(t *testing.T) {

	t.Run("test node addition", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 5)

		replacer.addNode(&lrukNode{frameId: 1, k: 5})
		replacer.addNode(&lrukNode{frameId: 2, k: 5})
		replacer.addNode(&lrukNode{frameId: 3, k: 5})

		assert.Equal(t, lruToArr(replacer.head.next), []int{3, 2, 1})
	})

	t.Run("accessing a node moves it to the front of the queue", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 5)

		replacer.addNode(&lrukNode{frameId: 1, k: 5})
		replacer.addNode(&lrukNode{frameId: 2, k: 5})
		replacer.addNode(&lrukNode{frameId: 3, k: 5})
		assert.Equal(t, lruToArr(replacer.head.next), []int{3, 2, 1})

		replacer.recordAccess(1)
		assert.Equal(t, lruToArr(replacer.head.next), []int{1, 3, 2})
	})

	t.Run("pinned frames are never victims", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Pin(1)
		replacer.Pin(2)
		replacer.Unpin(2)
		assert.Equal(t, 1, replacer.Size())

		victim, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, 2, victim)

		_, ok = replacer.Victim()
		assert.False(t, ok)
		assert.Zero(t, replacer.Size())
	})

	t.Run("unpin of an unknown frame is ignored", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Unpin(4)
		assert.Zero(t, replacer.Size())
	})

	t.Run("remove forgets the frame", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Pin(1)
		replacer.Pin(2)
		replacer.Unpin(1)
		replacer.Unpin(2)

		replacer.Remove(1)
		assert.Equal(t, 1, replacer.Size())
		assert.Equal(t, lruToArr(replacer.head.next), []int{2})

		victim, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, 2, victim)
	})

	t.Run("frames outside the replacer panic", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		assert.Panics(t, func() {
			replacer.Pin(5)
		})
	})
}

func TestEviction(t *testing.T) {
	t.Run("prefers to evict node with < k accesses", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Pin(2)

		// access 3 k times, k = 2
		replacer.Pin(3)
		replacer.Pin(3)

		// access 1 k times, k = 2
		replacer.Pin(1)
		replacer.Pin(1)

		replacer.Unpin(1)
		replacer.Unpin(2)
		replacer.Unpin(3)

		evicted, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, evicted, 2)
	})

	t.Run("prefers to evict oldest node if all nodes have < k access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		// all nodes have < k access, k = 2
		replacer.Pin(2)
		replacer.Pin(3)
		replacer.Pin(1)

		replacer.Unpin(1)
		replacer.Unpin(2)
		replacer.Unpin(3)
		assert.Equal(t, replacer.Size(), 3)

		evicted, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, evicted, 2)
	})

	t.Run("prefers to evict oldest node if all nodes have k access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		// access 3 k times, k = 2
		replacer.Pin(3)
		replacer.Pin(3)

		// access 2 k times, k = 2
		replacer.Pin(2)
		replacer.Pin(2)

		// access 1 k times, k = 2
		replacer.Pin(1)
		replacer.Pin(1)

		replacer.Unpin(1)
		replacer.Unpin(2)
		replacer.Unpin(3)
		assert.Equal(t, replacer.Size(), 3)

		evicted, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, evicted, 3)
	})

	t.Run("the kth access decides, not the latest", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Pin(1) // t0
		replacer.Pin(2) // t1
		replacer.Pin(2) // t2
		replacer.Pin(1) // t3

		replacer.Unpin(1)
		replacer.Unpin(2)

		// frame 1 was touched last but its 2nd most recent access is older
		evicted, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, evicted, 1)
	})

	t.Run("unpin does not count as an access", func(t *testing.T) {
		replacer := NewLrukReplacer(5, 2)

		replacer.Pin(1)
		replacer.Pin(2)
		replacer.Pin(2)

		replacer.Unpin(1)
		replacer.Unpin(2)

		evicted, ok := replacer.Victim()
		assert.True(t, ok)
		assert.Equal(t, evicted, 1)
	})
}

func lruToArr(head *lrukNode) []util.FrameId {
	res := []util.FrameId{}

	for head.next != nil {
		res = append(res, head.frameId)
		head = head.next
	}

	return res
}
