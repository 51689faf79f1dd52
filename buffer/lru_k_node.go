package buffer

import "github.com/jobala/pagecache/util"

type lrukNode struct {
	prev        *lrukNode
	next        *lrukNode
	frameId     util.FrameId
	k           int
	history     []int
	isEvictable bool
}

func (n *lrukNode) hasKAccess() bool {
	return n.k == len(n.history)
}

// kthAccess is the oldest timestamp still in the history. Once the node has
// k accesses it is the k-th most recent one.
func (n *lrukNode) kthAccess() int {
	if len(n.history) > 0 {
		return n.history[0]
	}

	return -1
}

func (n *lrukNode) addTimestamp(timestamp int) {
	if len(n.history) < n.k {
		n.history = append(n.history, timestamp)
		return
	}

	n.history = n.history[1:]
	n.history = append(n.history, timestamp)
}

// evictsBefore orders victims: frames with fewer than k accesses have an
// infinite backward k-distance and go first, then the oldest k-th access,
// then the lowest frame id.
func (n *lrukNode) evictsBefore(other *lrukNode) bool {
	if n.hasKAccess() != other.hasKAccess() {
		return !n.hasKAccess()
	}
	if n.kthAccess() != other.kthAccess() {
		return n.kthAccess() < other.kthAccess()
	}

	return n.frameId < other.frameId
}
