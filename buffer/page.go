package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/jobala/pagecache/util"
)

// Page is a fixed size block of bytes guarded by a reader/writer lock. Many
// readers or a single writer may hold the lock. A page knows nothing about
// pinning; the BufferpoolManager layers that on top.
type Page struct {
	mu    sync.RWMutex
	id    util.PageId
	data  [util.PAGE_SIZE]byte
	dirty atomic.Bool
}

func newPage() *Page {
	return &Page{id: util.INVALID_PAGE_ID}
}

// AcquireRead blocks until no writer holds the page.
func (p *Page) AcquireRead() *ReadGuard {
	p.mu.RLock()
	return &ReadGuard{page: p}
}

// AcquireWrite blocks until the page has no other holder.
func (p *Page) AcquireWrite() *WriteGuard {
	p.mu.Lock()
	return &WriteGuard{page: p}
}

func (p *Page) IsDirty() bool {
	return p.dirty.Load()
}

// reset clears the page for reuse by another page id. The caller holds the
// write lock and the frame is unpinned.
func (p *Page) reset() {
	p.id = util.INVALID_PAGE_ID
	p.data = [util.PAGE_SIZE]byte{}
	p.dirty.Store(false)
}

// ReadGuard is a scoped shared lock on a page.
type ReadGuard struct {
	page     *Page
	released bool
}

// Data aliases the page bytes and is only valid until Release.
func (g *ReadGuard) Data() []byte {
	return g.page.data[:]
}

func (g *ReadGuard) PageId() util.PageId {
	return g.page.id
}

func (g *ReadGuard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.page.mu.RUnlock()
}

// WriteGuard is a scoped exclusive lock on a page.
type WriteGuard struct {
	page     *Page
	released bool
}

// DataMut aliases the page bytes and is only valid until Release.
func (g *WriteGuard) DataMut() []byte {
	return g.page.data[:]
}

func (g *WriteGuard) PageId() util.PageId {
	return g.page.id
}

func (g *WriteGuard) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.page.mu.Unlock()
}
