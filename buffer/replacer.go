package buffer

import (
	"fmt"

	"github.com/jobala/pagecache/util"
)

type ReplacerKind string

const (
	CLOCK ReplacerKind = "clock"
	LRU_K ReplacerKind = "lru-k"
	LRU   ReplacerKind = "lru"
)

// Replacer picks which unpinned frame to reuse when the pool has no free
// frame. A frame is a candidate from Unpin until the next Pin, Victim or
// Remove. Implementations must never return a pinned frame.
type Replacer interface {
	// Pin takes the frame out of the candidate set and records an access.
	Pin(frameId util.FrameId)
	// Unpin makes the frame a candidate. Policies may count it as an access.
	Unpin(frameId util.FrameId)
	// Victim removes and returns the best candidate, or false if there is none.
	Victim() (util.FrameId, bool)
	// Remove forgets the frame and its access history.
	Remove(frameId util.FrameId)
	// Size is the number of candidates.
	Size() int
}

func NewReplacer(kind ReplacerKind, size, k int) (Replacer, error) {
	if size <= 0 {
		return nil, util.ErrInvalidPoolSize
	}

	switch kind {
	case CLOCK, "":
		return NewClockReplacer(size), nil
	case LRU_K:
		if k <= 0 {
			return nil, fmt.Errorf("lru-k needs k > 0, got %d", k)
		}
		return NewLrukReplacer(size, k), nil
	case LRU:
		return NewLruReplacer(size)
	default:
		return nil, fmt.Errorf("unknown replacer %q", kind)
	}
}
