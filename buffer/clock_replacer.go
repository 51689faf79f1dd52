package buffer

import (
	"sync"

	"github.com/jobala/pagecache/util"
)

// NewClockReplacer returns a second chance replacer. The hand starts at frame
// 0, so among equally old frames the lowest index is chosen first.
func NewClockReplacer(size int) *ClockReplacer {
	return &ClockReplacer{
		frames: make([]clockEntry, size),
	}
}

func (c *ClockReplacer) Pin(frameId util.FrameId) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &c.frames[frameId]
	if entry.evictable {
		entry.evictable = false
		c.size--
	}
	entry.referenced = true
}

func (c *ClockReplacer) Unpin(frameId util.FrameId) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &c.frames[frameId]
	if !entry.evictable {
		entry.evictable = true
		c.size++
	}
	entry.referenced = true
}

// Victim sweeps at most twice around the clock: the first pass clears every
// reference bit it passes, so the second pass must find a candidate.
func (c *ClockReplacer) Victim() (util.FrameId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return util.INVALID_FRAME_ID, false
	}

	for range 2*len(c.frames) + 1 {
		frameId := c.hand
		c.hand = (c.hand + 1) % len(c.frames)

		entry := &c.frames[frameId]
		if !entry.evictable {
			continue
		}
		if entry.referenced {
			entry.referenced = false
			continue
		}

		entry.evictable = false
		c.size--
		return frameId, true
	}

	panic("buffer: clock sweep found no victim with candidates present")
}

func (c *ClockReplacer) Remove(frameId util.FrameId) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &c.frames[frameId]
	if entry.evictable {
		c.size--
	}
	*entry = clockEntry{}
}

func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

type clockEntry struct {
	evictable  bool
	referenced bool
}

type ClockReplacer struct {
	mu     sync.Mutex
	frames []clockEntry
	hand   int
	size   int
}
