package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jobala/pagecache/buffer"
	"github.com/jobala/pagecache/util"
)

// record is the msgpack image each page holds. Version counts the writes the
// page has seen, so a lost update shows up in verify.
type record struct {
	PageId  uint32
	Version int64
	Payload string
}

func newWorkload(bpm *buffer.BufferpoolManager, logger *slog.Logger) *workload {
	return &workload{
		bpm:    bpm,
		logger: logger,
	}
}

func (w *workload) seed(numPages int) error {
	for range numPages {
		pageId, handle, err := w.bpm.NewPage()
		if err != nil {
			return err
		}

		data, err := util.ToByteSlice(record{PageId: uint32(pageId), Payload: fmt.Sprintf("page-%d", pageId)})
		if err != nil {
			_ = handle.Drop()
			return err
		}

		guard := handle.AcquireWrite()
		copy(guard.DataMut(), data)
		guard.Release()
		if err := handle.Drop(); err != nil {
			return err
		}

		w.pageIds = append(w.pageIds, pageId)
	}

	w.versions = make([]atomic.Int64, len(w.pageIds))
	return nil
}

// run starts the workers and returns the first error any of them hit.
func (w *workload) run(numWorkers, opsPerWorker int) error {
	var wg sync.WaitGroup
	errs := make([]error, numWorkers)

	for i := range numWorkers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(worker), 0x9e3779b97f4a7c15))
			for range opsPerWorker {
				idx := rng.IntN(len(w.pageIds))
				write := rng.IntN(5) == 0

				if err := w.op(idx, write); err != nil {
					errs[worker] = err
					return
				}
			}
		}(i)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// op reads or bumps one record. An exhausted pool is retried, every other
// error ends the worker.
func (w *workload) op(idx int, write bool) error {
	pageId := w.pageIds[idx]

	for {
		var err error
		if write {
			err = w.bump(idx, pageId)
		} else {
			err = w.check(pageId)
		}

		if !errors.Is(err, util.ErrPoolExhausted) {
			return err
		}
		w.retries.Add(1)
		runtime.Gosched()
	}
}

func (w *workload) bump(idx int, pageId util.PageId) error {
	pageGuard, err := w.bpm.WritePage(pageId)
	if err != nil {
		return err
	}
	defer pageGuard.Drop()

	rec, err := util.ToStruct[record](pageGuard.GetDataMut())
	if err != nil {
		return fmt.Errorf("decode page %d: %w", pageId, err)
	}

	rec.Version++
	data, err := util.ToByteSlice(rec)
	if err != nil {
		return err
	}

	copy(pageGuard.GetDataMut(), data)
	w.versions[idx].Add(1)
	return nil
}

func (w *workload) check(pageId util.PageId) error {
	pageGuard, err := w.bpm.ReadPage(pageId)
	if err != nil {
		return err
	}
	defer pageGuard.Drop()

	rec, err := util.ToStruct[record](pageGuard.GetData())
	if err != nil {
		return fmt.Errorf("decode page %d: %w", pageId, err)
	}
	if util.PageId(rec.PageId) != pageId {
		return fmt.Errorf("page %d holds the record of page %d", pageId, rec.PageId)
	}

	return nil
}

// verify compares every record's version with the writes counted in memory.
func (w *workload) verify() error {
	var errs []error
	for idx, pageId := range w.pageIds {
		pageGuard, err := w.bpm.ReadPage(pageId)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		rec, err := util.ToStruct[record](pageGuard.GetData())
		pageGuard.Drop()
		if err != nil {
			errs = append(errs, fmt.Errorf("decode page %d: %w", pageId, err))
			continue
		}

		if want := w.versions[idx].Load(); rec.Version != want {
			errs = append(errs, fmt.Errorf("page %d is at version %d, want %d", pageId, rec.Version, want))
		}
	}

	if len(errs) == 0 {
		w.logger.Info("verified records", "pages", len(w.pageIds))
	}
	return errors.Join(errs...)
}

type workload struct {
	bpm      *buffer.BufferpoolManager
	logger   *slog.Logger
	pageIds  []util.PageId
	versions []atomic.Int64
	retries  atomic.Int64
}
