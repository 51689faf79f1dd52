package buffer

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jobala/pagecache/util"
)

// Stats is a point in time view of the pool. Counters are cumulative.
type Stats struct {
	Capacity   int
	Resident   int
	Pinned     int
	Dirty      int
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Flushes    uint64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d/%d frames resident (%s), %d pinned, %d dirty, %s hits, %s misses (%.1f%%), %s evictions, %s write-backs, %s flushes",
		s.Resident, s.Capacity, humanize.IBytes(uint64(s.Capacity)*util.PAGE_SIZE),
		s.Pinned, s.Dirty,
		humanize.Comma(int64(s.Hits)), humanize.Comma(int64(s.Misses)), s.HitRate()*100,
		humanize.Comma(int64(s.Evictions)), humanize.Comma(int64(s.WriteBacks)), humanize.Comma(int64(s.Flushes)))
}

func (b *BufferpoolManager) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := Stats{
		Capacity:   len(b.frames),
		Resident:   b.frameTable.size(),
		Hits:       b.hits.Load(),
		Misses:     b.misses.Load(),
		Evictions:  b.evictions.Load(),
		WriteBacks: b.writeBacks.Load(),
		Flushes:    b.flushes.Load(),
	}

	for _, frameId := range b.frameTable.pages {
		f := b.frames[frameId]
		if f.pins > 0 {
			stats.Pinned++
		}
		if f.page.IsDirty() {
			stats.Dirty++
		}
	}

	return stats
}
