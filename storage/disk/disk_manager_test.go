package disk

import (
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/jobala/pagecache/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskManager(t *testing.T) {
	t.Run("test slot allocation", func(t *testing.T) {
		dm := newTestManager(t)

		offset1, err := dm.allocateSlot()
		assert.NoError(t, err)

		offset2, err := dm.allocateSlot()
		assert.NoError(t, err)

		assert.Equal(t, int64(0), offset1)
		assert.Equal(t, int64(4096), offset2)
	})

	t.Run("allocate reuses free slots", func(t *testing.T) {
		dm := newTestManager(t)
		dm.freeSlots = []int64{8192}

		offset, err := dm.allocateSlot()
		assert.NoError(t, err)

		assert.Equal(t, int64(8192), offset)
		assert.Empty(t, dm.freeSlots)
	})

	t.Run("test db file gets resized when full", func(t *testing.T) {
		// creates a 4kb file
		dm := newTestManager(t)
		assert.Equal(t, 1, dm.pageCapacity)

		_, err := dm.allocateSlot()
		assert.NoError(t, err)

		offset, err := dm.allocateSlot()
		assert.NoError(t, err)

		assert.Equal(t, int64(4096), offset)
		assert.Equal(t, 2, dm.pageCapacity)

		// dbFile is increased in size
		fileInfo, err := os.Stat(dm.dbFile.Name())
		assert.NoError(t, err)
		assert.Equal(t, int64(PAGE_SIZE)*2, fileInfo.Size())
	})

	t.Run("test reading and writing a page", func(t *testing.T) {
		dm := newTestManager(t)

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("hello world"))

		err := dm.WritePage(1, buf)
		assert.NoError(t, err)

		res, err := dm.ReadPage(1)
		assert.NoError(t, err)

		assert.Equal(t, buf, res)
	})

	t.Run("reading an unwritten page reports not found", func(t *testing.T) {
		dm := newTestManager(t)

		_, err := dm.ReadPage(42)
		assert.ErrorIs(t, err, util.ErrPageNotFound)
	})

	t.Run("rejects partial pages", func(t *testing.T) {
		dm := newTestManager(t)

		err := dm.WritePage(1, []byte("short"))
		assert.ErrorIs(t, err, util.ErrInvalidPageSize)
	})

	t.Run("detects pages changed behind its back", func(t *testing.T) {
		dm := newTestManager(t)

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("hello world"))
		assert.NoError(t, dm.WritePage(3, buf))

		_, err := dm.dbFile.WriteAt([]byte("HELLO"), dm.pages[3])
		assert.NoError(t, err)

		_, err = dm.ReadPage(3)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch)
	})

	t.Run("page ids are handed out in order", func(t *testing.T) {
		dm := newTestManager(t)

		assert.Equal(t, util.PageId(0), dm.AllocatePageId())
		assert.Equal(t, util.PageId(1), dm.AllocatePageId())
		assert.Equal(t, util.PageId(2), dm.AllocatePageId())
	})

	t.Run("test page deletion", func(t *testing.T) {
		dm := newTestManager(t)

		buf := make([]byte, PAGE_SIZE)
		assert.NoError(t, dm.WritePage(1, buf))
		assert.Equal(t, len(dm.freeSlots), 0)

		assert.NoError(t, dm.DeallocatePage(1))
		assert.Equal(t, len(dm.freeSlots), 1)

		_, err := dm.ReadPage(1)
		assert.ErrorIs(t, err, util.ErrPageNotFound)
	})

	t.Run("directory survives a reopen", func(t *testing.T) {
		dbPath := path.Join(t.TempDir(), "test.db")

		dm, err := Open(dbPath)
		require.NoError(t, err)

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("persisted"))

		pageId := dm.AllocatePageId()
		assert.NoError(t, dm.WritePage(pageId, buf))
		assert.NoError(t, dm.Close())

		reopened, err := Open(dbPath)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = reopened.Close()
		})

		res, err := reopened.ReadPage(pageId)
		assert.NoError(t, err)
		assert.Equal(t, buf, res)

		// ids are not reused after a restart
		assert.Equal(t, pageId+1, reopened.AllocatePageId())
	})
}

func TestMemoryManager(t *testing.T) {
	t.Run("stores copies of pages", func(t *testing.T) {
		dm := NewMemoryManager()

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("hello world"))
		assert.NoError(t, dm.WritePage(1, buf))

		buf[0] = 'j'
		res, err := dm.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, byte('h'), res[0])

		res[1] = 'a'
		again, err := dm.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, byte('e'), again[1])
	})

	t.Run("missing and deallocated pages are not found", func(t *testing.T) {
		dm := NewMemoryManager()

		_, err := dm.ReadPage(1)
		assert.ErrorIs(t, err, util.ErrPageNotFound)

		assert.NoError(t, dm.WritePage(1, make([]byte, PAGE_SIZE)))
		assert.NoError(t, dm.DeallocatePage(1))

		_, err = dm.ReadPage(1)
		assert.ErrorIs(t, err, util.ErrPageNotFound)
	})
}

func newTestManager(t *testing.T) *FileManager {
	t.Helper()

	dbFile := CreateDbFile(t)
	dm, err := NewManager(dbFile)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = dm.Close()
		_ = os.Remove(dbFile.Name())
	})

	return dm
}

func CreateDbFile(t *testing.T) *os.File {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")

	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		panic(fmt.Sprintf("failed creating db file\n%v", err))
	}

	// create 4kb file
	_ = os.Truncate(file.Name(), PAGE_SIZE)
	fileInfo, err := os.Stat(file.Name())
	assert.NoError(t, err)
	assert.Equal(t, int64(PAGE_SIZE), fileInfo.Size())
	return file
}
