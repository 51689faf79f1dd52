package disk

import (
	"sync"

	"github.com/jobala/pagecache/util"
)

// MemoryManager keeps pages in a map. Reads and writes copy, so callers never
// alias the stored image.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		pages: map[util.PageId][]byte{},
	}
}

func (m *MemoryManager) ReadPage(pageId util.PageId) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.pages[pageId]
	if !ok {
		return nil, util.ErrPageNotFound
	}

	return append([]byte(nil), data...), nil
}

func (m *MemoryManager) WritePage(pageId util.PageId, data []byte) error {
	if len(data) != PAGE_SIZE {
		return util.ErrInvalidPageSize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages[pageId] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryManager) AllocatePageId() util.PageId {
	m.mu.Lock()
	defer m.mu.Unlock()

	pageId := m.nextPageId
	m.nextPageId++
	return pageId
}

func (m *MemoryManager) DeallocatePage(pageId util.PageId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pages, pageId)
	return nil
}

func (m *MemoryManager) Close() error { return nil }

type MemoryManager struct {
	mu         sync.RWMutex
	pages      map[util.PageId][]byte
	nextPageId util.PageId
}
