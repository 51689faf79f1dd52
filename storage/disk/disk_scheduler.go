package disk

import (
	"sync"

	"github.com/jobala/pagecache/util"
	"github.com/puzpuzpuz/xsync/v3"
)

type Op int

const (
	OpRead Op = iota
	OpWrite
	OpDeallocate
)

// NewScheduler takes ownership of diskManager; Close closes it.
func NewScheduler(diskManager Manager) *DiskScheduler {
	return &DiskScheduler{
		diskManager: diskManager,
		pageQueue:   xsync.NewMapOf[util.PageId, *pageQueue](),
	}
}

func NewRequest(pageId util.PageId, data []byte, op Op) DiskReq {
	return DiskReq{
		PageId: pageId,
		Data:   data,
		Op:     op,
		RespCh: make(chan DiskResp, 1),
	}
}

// Schedule queues req behind every earlier request for the same page and
// returns immediately. Requests for different pages run in parallel.
func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	if req.RespCh == nil {
		req.RespCh = make(chan DiskResp, 1)
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.closed {
		go func() { req.RespCh <- DiskResp{Err: util.ErrSchedulerClosed} }()
		return req.RespCh
	}

	startWorker := false
	ds.pageQueue.Compute(req.PageId, func(q *pageQueue, loaded bool) (*pageQueue, bool) {
		if !loaded {
			q = &pageQueue{}
			startWorker = true
		}
		q.reqs = append(q.reqs, req)
		return q, false
	})

	// a page has at most one worker, started by whoever created its queue
	if startWorker {
		ds.wg.Add(1)
		go ds.pageWorker(req.PageId)
	}

	return req.RespCh
}

func (ds *DiskScheduler) Read(pageId util.PageId) ([]byte, error) {
	resp := <-ds.Schedule(NewRequest(pageId, nil, OpRead))
	return resp.Data, resp.Err
}

// Write blocks until data is durable in the disk manager. data must not be
// modified before Write returns.
func (ds *DiskScheduler) Write(pageId util.PageId, data []byte) error {
	resp := <-ds.Schedule(NewRequest(pageId, data, OpWrite))
	return resp.Err
}

func (ds *DiskScheduler) Deallocate(pageId util.PageId) error {
	resp := <-ds.Schedule(NewRequest(pageId, nil, OpDeallocate))
	return resp.Err
}

func (ds *DiskScheduler) AllocatePageId() util.PageId {
	return ds.diskManager.AllocatePageId()
}

// Close rejects new requests, waits for queued ones and closes the disk
// manager.
func (ds *DiskScheduler) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	ds.wg.Wait()
	return ds.diskManager.Close()
}

func (ds *DiskScheduler) pageWorker(pageId util.PageId) {
	defer ds.wg.Done()

	for {
		var req DiskReq
		found := false

		// the queue is dropped in the same atomic step that finds it empty,
		// so a concurrent Schedule either lands in this queue or starts a
		// new worker
		ds.pageQueue.Compute(pageId, func(q *pageQueue, loaded bool) (*pageQueue, bool) {
			if !loaded || len(q.reqs) == 0 {
				return q, true
			}
			req, found = q.reqs[0], true
			q.reqs = q.reqs[1:]
			return q, false
		})

		if !found {
			return
		}

		req.RespCh <- ds.handle(req)
	}
}

func (ds *DiskScheduler) handle(req DiskReq) DiskResp {
	switch req.Op {
	case OpWrite:
		return DiskResp{Err: ds.diskManager.WritePage(req.PageId, req.Data)}
	case OpDeallocate:
		return DiskResp{Err: ds.diskManager.DeallocatePage(req.PageId)}
	default:
		data, err := ds.diskManager.ReadPage(req.PageId)
		return DiskResp{Data: data, Err: err}
	}
}

type DiskScheduler struct {
	diskManager Manager
	pageQueue   *xsync.MapOf[util.PageId, *pageQueue]

	// mu orders Schedule against Close so no worker starts after wg.Wait
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type pageQueue struct {
	reqs []DiskReq
}

type DiskReq struct {
	PageId util.PageId
	Data   []byte
	Op     Op
	RespCh chan DiskResp
}

type DiskResp struct {
	Data []byte
	Err  error
}
