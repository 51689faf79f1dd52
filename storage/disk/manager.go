package disk

import "github.com/jobala/pagecache/util"

const PAGE_SIZE = util.PAGE_SIZE

// Manager is the durable home of pages. Implementations must be safe for
// concurrent use across different page ids; requests for the same page id are
// serialized by the DiskScheduler.
type Manager interface {
	// ReadPage returns a copy of the page's bytes, or util.ErrPageNotFound if
	// the page was never written.
	ReadPage(pageId util.PageId) ([]byte, error)
	WritePage(pageId util.PageId, data []byte) error

	// AllocatePageId hands out a fresh id. It must not block on I/O.
	AllocatePageId() util.PageId
	DeallocatePage(pageId util.PageId) error

	Close() error
}
