package disk

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/jobala/pagecache/util"
)

// Open opens or creates a database file and loads its page directory from
// the sidecar metadata file, if one exists.
func Open(path string) (*FileManager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening db file %s: %w", path, err)
	}

	dm, err := NewManager(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if err := dm.loadDirectory(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return dm, nil
}

// NewManager wraps an already open file. The page directory starts empty.
func NewManager(file *os.File) (*FileManager, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat db file: %w", err)
	}

	return &FileManager{
		dbFile:       file,
		metaPath:     file.Name() + ".meta",
		pageCapacity: max(1, int(info.Size()/PAGE_SIZE)),
		freeSlots:    []int64{},
		pages:        map[util.PageId]int64{},
		sums:         map[util.PageId]uint64{},
	}, nil
}

func (dm *FileManager) ReadPage(pageId util.PageId) ([]byte, error) {
	dm.mu.RLock()
	offset, pageFound := dm.pages[pageId]
	sum, written := dm.sums[pageId]
	dm.mu.RUnlock()

	if !pageFound || !written {
		return nil, util.ErrPageNotFound
	}

	buf := make([]byte, PAGE_SIZE)
	if _, err := dm.dbFile.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("error reading from offset %d: %w", offset, err)
	}

	if xxhash.Sum64(buf) != sum {
		return nil, fmt.Errorf("page at offset %d: %w", offset, util.ErrChecksumMismatch)
	}

	return buf, nil
}

func (dm *FileManager) WritePage(pageId util.PageId, data []byte) error {
	if len(data) != PAGE_SIZE {
		return util.ErrInvalidPageSize
	}

	dm.mu.Lock()
	offset, pageFound := dm.pages[pageId]
	if !pageFound {
		var err error
		if offset, err = dm.allocateSlot(); err != nil {
			dm.mu.Unlock()
			return err
		}
		dm.pages[pageId] = offset
	}
	dm.mu.Unlock()

	if _, err := dm.dbFile.WriteAt(data, offset); err != nil {
		return fmt.Errorf("error writing at offset %d: %w", offset, err)
	}

	sum := xxhash.Sum64(data)
	dm.mu.Lock()
	dm.sums[pageId] = sum
	dm.mu.Unlock()

	return nil
}

func (dm *FileManager) AllocatePageId() util.PageId {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	pageId := dm.nextPageId
	dm.nextPageId++
	return pageId
}

func (dm *FileManager) DeallocatePage(pageId util.PageId) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if offset, ok := dm.pages[pageId]; ok {
		dm.freeSlots = append(dm.freeSlots, offset)
		delete(dm.pages, pageId)
		delete(dm.sums, pageId)
	}

	return nil
}

// Sync flushes the data file and persists the page directory.
func (dm *FileManager) Sync() error {
	if err := dm.dbFile.Sync(); err != nil {
		return fmt.Errorf("sync db file: %w", err)
	}

	return dm.saveDirectory()
}

func (dm *FileManager) Close() error {
	err := dm.Sync()
	if e := dm.dbFile.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close db file: %w", e))
	}

	return err
}

// allocateSlot reserves a page sized slot in the data file. Callers hold dm.mu.
func (dm *FileManager) allocateSlot() (int64, error) {
	if len(dm.freeSlots) > 0 {
		offset := dm.freeSlots[0]
		dm.freeSlots = dm.freeSlots[1:]

		return offset, nil
	}

	if int(dm.nextOffset/PAGE_SIZE)+1 > dm.pageCapacity {
		dm.pageCapacity *= 2
		if err := dm.dbFile.Truncate(int64(dm.pageCapacity) * PAGE_SIZE); err != nil {
			return -1, fmt.Errorf("error resizing db file: %w", err)
		}
	}

	offset := dm.nextOffset
	dm.nextOffset += PAGE_SIZE
	return offset, nil
}

// FileManager stores pages in a single data file. The page directory maps
// page ids to file offsets and keeps an xxhash checksum per written page.
type FileManager struct {
	mu           sync.RWMutex
	dbFile       *os.File
	metaPath     string
	pages        map[util.PageId]int64
	sums         map[util.PageId]uint64
	freeSlots    []int64
	nextOffset   int64
	nextPageId   util.PageId
	pageCapacity int
}
