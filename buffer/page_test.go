package buffer

import (
	"testing"
	"time"

	"github.com/jobala/pagecache/util"
	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	t.Run("readers share the page", func(t *testing.T) {
		page := newPage()

		first := page.AcquireRead()
		second := page.AcquireRead()
		assert.Equal(t, util.INVALID_PAGE_ID, first.PageId())

		first.Release()
		second.Release()
	})

	t.Run("a writer excludes readers", func(t *testing.T) {
		page := newPage()
		writer := page.AcquireWrite()
		copy(writer.DataMut(), "written")

		acquired := make(chan []byte)
		go func() {
			reader := page.AcquireRead()
			defer reader.Release()
			acquired <- append([]byte(nil), reader.Data()[:7]...)
		}()

		select {
		case <-acquired:
			t.Fatal("reader got in while the writer held the page")
		case <-time.After(20 * time.Millisecond):
		}

		writer.Release()
		assert.Equal(t, []byte("written"), <-acquired)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		page := newPage()

		writer := page.AcquireWrite()
		writer.Release()
		writer.Release()

		reader := page.AcquireRead()
		reader.Release()
		reader.Release()

		// the lock must be free again
		page.AcquireWrite().Release()
	})

	t.Run("reset clears the page", func(t *testing.T) {
		page := newPage()
		page.id = 3
		page.dirty.Store(true)
		copy(page.data[:], "stale")

		page.reset()

		assert.Equal(t, util.INVALID_PAGE_ID, page.id)
		assert.False(t, page.IsDirty())
		assert.Equal(t, make([]byte, util.PAGE_SIZE), page.data[:])
	})
}

func TestFrameTable(t *testing.T) {
	t.Run("maps pages to frames and back", func(t *testing.T) {
		ft := newFrameTable(4)

		ft.insert(10, 2)
		frameId, ok := ft.lookup(10)
		assert.True(t, ok)
		assert.Equal(t, 2, frameId)

		pageId, ok := ft.owner(2)
		assert.True(t, ok)
		assert.Equal(t, util.PageId(10), pageId)
		assert.Equal(t, 1, ft.size())

		ft.remove(10)
		_, ok = ft.lookup(10)
		assert.False(t, ok)
		_, ok = ft.owner(2)
		assert.False(t, ok)
		assert.Zero(t, ft.size())
	})

	t.Run("a page lives in one frame", func(t *testing.T) {
		ft := newFrameTable(4)
		ft.insert(10, 2)

		assert.Panics(t, func() {
			ft.insert(10, 3)
		})
	})

	t.Run("a frame holds one page", func(t *testing.T) {
		ft := newFrameTable(4)
		ft.insert(10, 2)

		assert.Panics(t, func() {
			ft.insert(11, 2)
		})
	})

	t.Run("unpinning a frame with no pins panics", func(t *testing.T) {
		f := newFrame(0)
		assert.Equal(t, int32(1), f.pin())
		assert.Equal(t, int32(0), f.unpin())

		assert.Panics(t, func() {
			f.unpin()
		})
	})
}
