package buffer

import (
	"sync/atomic"

	"github.com/jobala/pagecache/util"
)

func newPageHandle(bpm *BufferpoolManager, frame *frame, pageId util.PageId) *PageHandle {
	return &PageHandle{
		bpm:    bpm,
		frame:  frame,
		pageId: pageId,
	}
}

// PageHandle is one pin on a resident page. The page stays in its frame until
// the handle is dropped.
type PageHandle struct {
	bpm     *BufferpoolManager
	frame   *frame
	pageId  util.PageId
	dirty   atomic.Bool
	dropped atomic.Bool
}

func (h *PageHandle) PageId() util.PageId {
	return h.pageId
}

func (h *PageHandle) AcquireRead() *ReadGuard {
	return h.frame.page.AcquireRead()
}

// AcquireWrite takes the page exclusively and marks the handle dirty, so the
// unpin on Drop carries the dirty flag.
func (h *PageHandle) AcquireWrite() *WriteGuard {
	h.dirty.Store(true)
	return h.frame.page.AcquireWrite()
}

func (h *PageHandle) MarkDirty() {
	h.dirty.Store(true)
}

// Drop unpins the page. Only the first call has an effect.
func (h *PageHandle) Drop() error {
	if h == nil || !h.dropped.CompareAndSwap(false, true) {
		return nil
	}

	return h.bpm.UnpinPage(h.pageId, h.dirty.Load())
}

func NewReadPageGuard(handle *PageHandle) *ReadPageGuard {
	return &ReadPageGuard{
		PageGuard: PageGuard{handle: handle},
		guard:     handle.AcquireRead(),
	}
}

func NewWritePageGuard(handle *PageHandle) *WritePageGuard {
	return &WritePageGuard{
		PageGuard: PageGuard{handle: handle},
		guard:     handle.AcquireWrite(),
	}
}

// Drop releases the page lock and then unpins. Only the first call unpins; an
// error means the pin was already given back through UnpinPage.
func (pg *ReadPageGuard) Drop() error {
	if pg == nil || pg.handle == nil {
		return nil
	}

	pg.guard.Release()
	return pg.handle.Drop()
}

func (pg *WritePageGuard) Drop() error {
	if pg == nil || pg.handle == nil {
		return nil
	}

	pg.guard.Release()
	return pg.handle.Drop()
}

func (pg *ReadPageGuard) GetData() []byte {
	return pg.guard.Data()
}

func (pg *WritePageGuard) GetDataMut() []byte {
	return pg.guard.DataMut()
}

func (pg *PageGuard) PageId() util.PageId {
	return pg.handle.PageId()
}

type PageGuard struct {
	handle *PageHandle
}

type ReadPageGuard struct {
	PageGuard
	guard *ReadGuard
}

type WritePageGuard struct {
	PageGuard
	guard *WriteGuard
}
