package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jobala/pagecache/util"
	"github.com/vmihailenco/msgpack"
)

// directory is the on-disk form of the FileManager's bookkeeping.
type directory struct {
	Pages        map[uint32]int64
	Sums         map[uint32]uint64
	FreeSlots    []int64
	NextOffset   int64
	NextPageId   uint32
	PageCapacity int
}

func (dm *FileManager) saveDirectory() error {
	dm.mu.RLock()
	dir := directory{
		Pages:        make(map[uint32]int64, len(dm.pages)),
		Sums:         make(map[uint32]uint64, len(dm.sums)),
		FreeSlots:    append([]int64(nil), dm.freeSlots...),
		NextOffset:   dm.nextOffset,
		NextPageId:   uint32(dm.nextPageId),
		PageCapacity: dm.pageCapacity,
	}
	for pageId, offset := range dm.pages {
		dir.Pages[uint32(pageId)] = offset
	}
	for pageId, sum := range dm.sums {
		dir.Sums[uint32(pageId)] = sum
	}
	dm.mu.RUnlock()

	data, err := msgpack.Marshal(&dir)
	if err != nil {
		return fmt.Errorf("encoding page directory: %w", err)
	}

	tmp := dm.metaPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing page directory: %w", err)
	}

	return os.Rename(tmp, dm.metaPath)
}

func (dm *FileManager) loadDirectory() error {
	data, err := os.ReadFile(dm.metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading page directory: %w", err)
	}

	var dir directory
	if err := msgpack.Unmarshal(data, &dir); err != nil {
		return fmt.Errorf("decoding page directory: %w", err)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	for pageId, offset := range dir.Pages {
		dm.pages[util.PageId(pageId)] = offset
	}
	for pageId, sum := range dir.Sums {
		dm.sums[util.PageId(pageId)] = sum
	}
	dm.freeSlots = append(dm.freeSlots[:0], dir.FreeSlots...)
	dm.nextOffset = dir.NextOffset
	dm.nextPageId = util.PageId(dir.NextPageId)
	dm.pageCapacity = max(dm.pageCapacity, dir.PageCapacity)

	return nil
}
