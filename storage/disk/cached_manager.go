package disk

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/jobala/pagecache/util"
)

// NewCachedManager puts a ristretto cache of page images in front of inner.
// It sits below the buffer pool, so pages evicted from the pool can often be
// fetched again without touching the data file. maxPages bounds the number
// of cached images.
func NewCachedManager(inner Manager, maxPages int64) (*CachedManager, error) {
	if maxPages <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", maxPages)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint32, []byte]{
		NumCounters:        maxPages * 10,
		MaxCost:            maxPages,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}

	return &CachedManager{inner: inner, cache: cache}, nil
}

func (cm *CachedManager) ReadPage(pageId util.PageId) ([]byte, error) {
	if data, ok := cm.cache.Get(uint32(pageId)); ok {
		return append([]byte(nil), data...), nil
	}

	data, err := cm.inner.ReadPage(pageId)
	if err != nil {
		return nil, err
	}

	cm.store(pageId, data)
	return data, nil
}

// WritePage is write-through: the cached image only changes after inner
// accepted the write.
func (cm *CachedManager) WritePage(pageId util.PageId, data []byte) error {
	cm.cache.Del(uint32(pageId))

	if err := cm.inner.WritePage(pageId, data); err != nil {
		return err
	}

	cm.store(pageId, data)
	return nil
}

func (cm *CachedManager) AllocatePageId() util.PageId {
	return cm.inner.AllocatePageId()
}

func (cm *CachedManager) DeallocatePage(pageId util.PageId) error {
	cm.cache.Del(uint32(pageId))
	cm.cache.Wait()

	return cm.inner.DeallocatePage(pageId)
}

func (cm *CachedManager) Close() error {
	cm.cache.Close()
	return cm.inner.Close()
}

// store caches a private copy and waits for ristretto's set buffer to drain
// so a later write of the same page cannot be overtaken by this one.
func (cm *CachedManager) store(pageId util.PageId, data []byte) {
	cm.cache.Set(uint32(pageId), append([]byte(nil), data...), 1)
	cm.cache.Wait()
}

type CachedManager struct {
	inner Manager
	cache *ristretto.Cache[uint32, []byte]
}
