package buffer

import (
	"fmt"

	"github.com/jobala/pagecache/util"
)

func newFrameTable(size int) *frameTable {
	owners := make([]util.PageId, size)
	for i := range owners {
		owners[i] = util.INVALID_PAGE_ID
	}

	return &frameTable{
		pages:  make(map[util.PageId]util.FrameId, size),
		owners: owners,
	}
}

// frameTable maps resident page ids to frames and back. It has no lock of its
// own: every call happens under BufferpoolManager.mu.
type frameTable struct {
	pages  map[util.PageId]util.FrameId
	owners []util.PageId
}

func (ft *frameTable) lookup(pageId util.PageId) (util.FrameId, bool) {
	frameId, ok := ft.pages[pageId]
	return frameId, ok
}

func (ft *frameTable) owner(frameId util.FrameId) (util.PageId, bool) {
	pageId := ft.owners[frameId]
	return pageId, pageId != util.INVALID_PAGE_ID
}

func (ft *frameTable) insert(pageId util.PageId, frameId util.FrameId) {
	if existing, ok := ft.pages[pageId]; ok {
		panic(fmt.Sprintf("buffer: page %d already mapped to frame %d", pageId, existing))
	}
	if current := ft.owners[frameId]; current != util.INVALID_PAGE_ID {
		panic(fmt.Sprintf("buffer: frame %d already holds page %d", frameId, current))
	}

	ft.pages[pageId] = frameId
	ft.owners[frameId] = pageId
}

func (ft *frameTable) remove(pageId util.PageId) {
	frameId, ok := ft.pages[pageId]
	if !ok {
		return
	}

	delete(ft.pages, pageId)
	ft.owners[frameId] = util.INVALID_PAGE_ID
}

func (ft *frameTable) size() int {
	return len(ft.pages)
}
