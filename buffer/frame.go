package buffer

import (
	"sync"

	"github.com/jobala/pagecache/util"
)

func newFrame(id util.FrameId) *frame {
	return &frame{
		id:   id,
		page: newPage(),
	}
}

// pin and unpin are only called with the pool's metadata lock held.
func (f *frame) pin() int32 {
	f.pins++
	return f.pins
}

func (f *frame) unpin() int32 {
	if f.pins <= 0 {
		panic("buffer: unpin of a frame with no pins")
	}

	f.pins--
	return f.pins
}

// frame is a fixed slot of the pool. Its page is replaced, never the frame.
type frame struct {
	id   util.FrameId
	page *Page
	pins int32

	// flushMu orders flushes of the frame from dirty check to durable write.
	// flushing counts flushes that hold a pin, under the pool's metadata lock.
	flushMu  sync.Mutex
	flushing int32
}
