package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
)

const logPrefix = "bufferpool: "

func NewBufferpoolManager(diskScheduler *disk.DiskScheduler, opts ...Option) (*BufferpoolManager, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	size := config.PoolSize
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", util.ErrInvalidPoolSize, size)
	}

	replacer := config.replacer
	if replacer == nil {
		r, err := NewReplacer(config.Replacer, size, config.LrukK)
		if err != nil {
			return nil, err
		}
		replacer = r
	}

	frames := make([]*frame, size)
	freeFrames := make([]util.FrameId, size)
	for i := range size {
		frames[i] = newFrame(i)
		freeFrames[i] = i
	}

	bpm := &BufferpoolManager{
		mu:            sync.Mutex{},
		frames:        frames,
		frameTable:    newFrameTable(size),
		pending:       make(map[util.PageId]chan struct{}),
		freeFrames:    freeFrames,
		replacer:      replacer,
		diskScheduler: diskScheduler,
		logger:        config.Logger,
	}

	bpm.logger.Info(logPrefix+"ready",
		"frames", size,
		"memory", humanize.IBytes(uint64(size)*util.PAGE_SIZE),
		"replacer", config.Replacer)
	return bpm, nil
}

// FetchPage returns a handle to the page, reading it from disk on a miss.
// Every successful fetch adds one pin that the caller gives back with
// UnpinPage or PageHandle.Drop, never both.
func (b *BufferpoolManager) FetchPage(pageId util.PageId) (*PageHandle, error) {
	for {
		b.mu.Lock()
		if marker, ok := b.pending[pageId]; ok {
			b.mu.Unlock()
			<-marker
			continue
		}

		if frameId, ok := b.frameTable.lookup(pageId); ok {
			f := b.frames[frameId]
			b.pinLocked(f)
			b.mu.Unlock()

			b.hits.Add(1)
			return newPageHandle(b, f, pageId), nil
		}

		c, err := b.claimFrame(pageId)
		b.mu.Unlock()
		if err != nil {
			return nil, err
		}

		b.misses.Add(1)
		b.logger.Debug(logPrefix+"miss", "pageId", pageId, "frameId", c.frame.id)
		err = b.fill(c, func(data []byte) error {
			res, err := b.diskScheduler.Read(pageId)
			if err != nil {
				return err
			}

			copy(data, res)
			return nil
		})
		if err != nil {
			return nil, err
		}

		return newPageHandle(b, c.frame, pageId), nil
	}
}

// NewPage allocates a page id and gives it a zeroed, pinned frame. The page
// starts dirty so it reaches disk even if nobody writes to it. The id is
// allocated without the metadata lock, so a caller that loses the last frame
// to a concurrent miss after allocating gets ErrPoolExhausted and the id is
// never used.
func (b *BufferpoolManager) NewPage() (util.PageId, *PageHandle, error) {
	b.mu.Lock()
	exhausted := len(b.freeFrames) == 0 && b.replacer.Size() == 0
	b.mu.Unlock()
	if exhausted {
		return util.INVALID_PAGE_ID, nil, util.ErrPoolExhausted
	}

	pageId := b.diskScheduler.AllocatePageId()

	b.mu.Lock()
	c, err := b.claimFrame(pageId)
	b.mu.Unlock()
	if err != nil {
		return util.INVALID_PAGE_ID, nil, err
	}

	err = b.fill(c, func(data []byte) error {
		c.frame.page.dirty.Store(true)
		return nil
	})
	if err != nil {
		return util.INVALID_PAGE_ID, nil, err
	}

	b.logger.Debug(logPrefix+"new page", "pageId", pageId, "frameId", c.frame.id)
	return pageId, newPageHandle(b, c.frame, pageId), nil
}

// UnpinPage gives back one pin. isDirty only ever sets the dirty flag, a
// clean unpin never clears it.
func (b *BufferpoolManager) UnpinPage(pageId util.PageId, isDirty bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, loading := b.pending[pageId]
	frameId, ok := b.frameTable.lookup(pageId)
	if !ok || loading {
		return fmt.Errorf("unpin page %d: %w", pageId, util.ErrPageNotResident)
	}

	f := b.frames[frameId]
	if isDirty {
		f.page.dirty.Store(true)
	}
	if f.unpin() == 0 {
		b.replacer.Unpin(frameId)
	}

	return nil
}

// FlushPage writes a dirty resident page to disk and clears its dirty flag.
// Pages that are not resident or clean are left alone. When it returns nil
// the bytes it saw are in the disk manager, even if another flush of the
// same page wrote them.
func (b *BufferpoolManager) FlushPage(pageId util.PageId) error {
	var f *frame
	for {
		b.mu.Lock()
		if marker, ok := b.pending[pageId]; ok {
			b.mu.Unlock()
			<-marker
			continue
		}

		frameId, ok := b.frameTable.lookup(pageId)
		if !ok {
			b.mu.Unlock()
			return nil
		}

		f = b.frames[frameId]
		if !f.page.IsDirty() && f.flushing == 0 {
			b.mu.Unlock()
			return nil
		}

		// hold a pin so the frame is not evicted while the write is in flight
		f.flushing++
		b.pinLocked(f)
		b.mu.Unlock()
		break
	}

	err := b.flushFrame(f, pageId)

	b.mu.Lock()
	f.flushing--
	if f.unpin() == 0 {
		b.replacer.Unpin(f.id)
	}
	b.mu.Unlock()

	return err
}

// flushFrame runs with a pin held. A flush that finds the page clean after
// waiting for f.flushMu was covered by the flush before it.
func (b *BufferpoolManager) flushFrame(f *frame, pageId util.PageId) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()

	if !f.page.IsDirty() {
		return nil
	}

	guard := f.page.AcquireRead()
	f.page.dirty.Store(false)
	snapshot := slices.Clone(guard.Data())
	guard.Release()

	if err := b.diskScheduler.Write(pageId, snapshot); err != nil {
		f.page.dirty.Store(true)
		err = util.NewIoError("flush", pageId, err)
		b.logger.Warn(logPrefix+"flush failed", "pageId", pageId, "err", err)
		return err
	}

	b.flushes.Add(1)
	return nil
}

// FlushAll flushes every page that was dirty or mid-flush when it was
// called. A failed page does not stop the others.
func (b *BufferpoolManager) FlushAll() error {
	b.mu.Lock()
	var dirty []util.PageId
	for pageId, frameId := range b.frameTable.pages {
		if f := b.frames[frameId]; f.page.IsDirty() || f.flushing > 0 {
			dirty = append(dirty, pageId)
		}
	}
	b.mu.Unlock()

	slices.Sort(dirty)

	var errs []error
	for _, pageId := range dirty {
		if err := b.FlushPage(pageId); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// DeletePage drops the page from the pool without writing it back and
// releases its id in the disk manager. Pinned pages cannot be deleted.
func (b *BufferpoolManager) DeletePage(pageId util.PageId) error {
	for {
		b.mu.Lock()
		if marker, ok := b.pending[pageId]; ok {
			b.mu.Unlock()
			<-marker
			continue
		}

		if frameId, ok := b.frameTable.lookup(pageId); ok {
			f := b.frames[frameId]
			if f.pins > 0 {
				b.mu.Unlock()
				return fmt.Errorf("delete page %d: %w", pageId, util.ErrPagePinned)
			}

			b.frameTable.remove(pageId)
			b.replacer.Remove(frameId)

			guard := f.page.AcquireWrite()
			f.page.reset()
			guard.Release()

			b.freeFrames = append(b.freeFrames, frameId)
		}
		b.mu.Unlock()
		break
	}

	if err := b.diskScheduler.Deallocate(pageId); err != nil {
		return util.NewIoError("deallocate", pageId, err)
	}

	return nil
}

// ReadPage fetches the page and holds it shared until the guard is dropped.
func (b *BufferpoolManager) ReadPage(pageId util.PageId) (*ReadPageGuard, error) {
	handle, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	return NewReadPageGuard(handle), nil
}

// WritePage fetches the page and holds it exclusively until the guard is
// dropped. Dropping the guard marks the page dirty.
func (b *BufferpoolManager) WritePage(pageId util.PageId) (*WritePageGuard, error) {
	handle, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	return NewWritePageGuard(handle), nil
}

func (b *BufferpoolManager) PinCount(pageId util.PageId) (int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameId, ok := b.frameTable.lookup(pageId)
	if !ok {
		return 0, false
	}

	return b.frames[frameId].pins, true
}

// Size is the number of resident pages.
func (b *BufferpoolManager) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.frameTable.size()
}

func (b *BufferpoolManager) Close() error {
	err := errors.Join(b.FlushAll(), b.diskScheduler.Close())
	b.logger.Info(logPrefix+"closed", "stats", b.Stats().String())
	return err
}

// claim is a frame taken by a miss. The frame is already mapped to the new
// page id and pinned once; the victim's old id, if any, is still being
// written back until the marker closes.
type claim struct {
	frame   *frame
	pageId  util.PageId
	oldId   util.PageId
	evicted bool
	dirty   bool
	marker  chan struct{}
}

// claimFrame runs with b.mu held.
func (b *BufferpoolManager) claimFrame(pageId util.PageId) (claim, error) {
	var f *frame
	if len(b.freeFrames) > 0 {
		f = b.frames[b.freeFrames[0]]
		b.freeFrames = b.freeFrames[1:]
	} else if frameId, ok := b.replacer.Victim(); ok {
		f = b.frames[frameId]
	} else {
		return claim{}, util.ErrPoolExhausted
	}

	if f.pins != 0 {
		panic(fmt.Sprintf("buffer: replacer offered frame %d with %d pins", f.id, f.pins))
	}

	c := claim{
		frame:  f,
		pageId: pageId,
		oldId:  util.INVALID_PAGE_ID,
		marker: make(chan struct{}),
	}

	if oldId, ok := b.frameTable.owner(f.id); ok {
		c.oldId = oldId
		c.evicted = true
		c.dirty = f.page.IsDirty()

		b.frameTable.remove(oldId)
		b.pending[oldId] = c.marker
	}

	b.frameTable.insert(pageId, f.id)
	b.pending[pageId] = c.marker
	b.pinLocked(f)

	return c, nil
}

// fill writes back the evicted page if it was dirty, then loads the new one.
// It runs without b.mu; the pending markers keep other callers away from
// both page ids until it is done.
func (b *BufferpoolManager) fill(c claim, load func(data []byte) error) error {
	f := c.frame

	var writeBackErr, loadErr error
	guard := f.page.AcquireWrite()
	if c.evicted && c.dirty {
		if err := b.diskScheduler.Write(c.oldId, guard.DataMut()); err != nil {
			writeBackErr = util.NewIoError("write back", c.oldId, err)
		} else {
			b.writeBacks.Add(1)
		}
	}

	if writeBackErr == nil {
		if c.evicted {
			b.evictions.Add(1)
			b.logger.Debug(logPrefix+"evicted", "pageId", c.oldId, "frameId", f.id, "dirty", c.dirty)
		}

		f.page.reset()
		f.page.id = c.pageId
		if err := load(guard.DataMut()); err != nil {
			loadErr = err
			f.page.reset()
		}
	}
	guard.Release()

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.pending, c.pageId)
	if c.evicted {
		delete(b.pending, c.oldId)
	}
	defer close(c.marker)

	switch {
	case writeBackErr != nil:
		// the victim keeps its page and becomes a candidate again
		b.frameTable.remove(c.pageId)
		b.frameTable.insert(c.oldId, f.id)
		f.unpin()
		b.replacer.Unpin(f.id)

		b.logger.Warn(logPrefix+"write back failed", "pageId", c.oldId, "err", writeBackErr)
		return writeBackErr

	case loadErr != nil:
		b.frameTable.remove(c.pageId)
		f.unpin()
		b.replacer.Remove(f.id)
		b.freeFrames = append(b.freeFrames, f.id)

		if errors.Is(loadErr, util.ErrPageNotFound) {
			return fmt.Errorf("fetch page %d: %w", c.pageId, loadErr)
		}
		return util.NewIoError("read", c.pageId, loadErr)
	}

	return nil
}

// pinLocked runs with b.mu held. Every pin is an access for the replacer.
func (b *BufferpoolManager) pinLocked(f *frame) {
	f.pin()
	b.replacer.Pin(f.id)
}

type BufferpoolManager struct {
	mu            sync.Mutex
	frames        []*frame
	frameTable    *frameTable
	pending       map[util.PageId]chan struct{}
	freeFrames    []util.FrameId
	replacer      Replacer
	diskScheduler *disk.DiskScheduler
	logger        *slog.Logger

	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	writeBacks atomic.Uint64
	flushes    atomic.Uint64
}
