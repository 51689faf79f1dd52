package buffer

import (
	"github.com/jobala/pagecache/util"

	lru "github.com/hashicorp/golang-lru"
)

// NewLruReplacer evicts the frame that was unpinned longest ago. The cache
// is sized to the pool, so it never drops a candidate on its own.
func NewLruReplacer(size int) (*LruReplacer, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &LruReplacer{internal: c}, nil
}

func (r *LruReplacer) Pin(frameId util.FrameId) {
	r.internal.Remove(frameId)
}

func (r *LruReplacer) Unpin(frameId util.FrameId) {
	r.internal.Add(frameId, struct{}{})
}

func (r *LruReplacer) Victim() (util.FrameId, bool) {
	key, _, ok := r.internal.RemoveOldest()
	if !ok {
		return util.INVALID_FRAME_ID, false
	}

	return key.(util.FrameId), true
}

func (r *LruReplacer) Remove(frameId util.FrameId) {
	r.internal.Remove(frameId)
}

func (r *LruReplacer) Size() int { return r.internal.Len() }

// LruReplacer is safe for concurrent use; golang-lru locks internally.
type LruReplacer struct {
	internal *lru.Cache
}
